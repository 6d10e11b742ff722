package upload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceive(t *testing.T) {
	inbox := filepath.Join(t.TempDir(), "inbox")

	path, cleanup, err := Receive(inbox, "report.txt", strings.NewReader("hello"), 100)
	require.NoError(t, err)
	assert.Equal(t, "report.txt", filepath.Base(path))
	assert.Equal(t, inbox, filepath.Dir(filepath.Dir(path)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	cleanup()
	_, err = os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(err))
}

func TestReceive_SanitisesName(t *testing.T) {
	inbox := t.TempDir()

	for _, name := range []string{"../../etc/passwd.txt", `..\..\evil.txt`, "/abs/x.txt"} {
		path, cleanup, err := Receive(inbox, name, strings.NewReader("x"), 10)
		require.NoError(t, err, name)
		rel, err := filepath.Rel(inbox, path)
		require.NoError(t, err)
		assert.False(t, strings.HasPrefix(rel, ".."), "%s escaped inbox: %s", name, path)
		cleanup()
	}

	for _, name := range []string{"", "/", ".."} {
		_, _, err := Receive(inbox, name, strings.NewReader("x"), 10)
		assert.Error(t, err, "%q", name)
	}
}

func TestReceive_BoundsSize(t *testing.T) {
	inbox := t.TempDir()

	path, cleanup, err := Receive(inbox, "big.txt", strings.NewReader(strings.Repeat("a", 1000)), 10)
	require.NoError(t, err)
	defer cleanup()

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(11), fi.Size())

	_, err = NewValidator(nil, 10).Validate(path)
	assert.True(t, IsReason(err, TooLarge))
}
