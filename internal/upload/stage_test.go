package upload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageAndRestore(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "doc.txt", 10)
	sandbox := filepath.Join(dir, "uploads")

	a, err := NewValidator(nil, 0).Validate(src)
	require.NoError(t, err)

	s, err := Stage(a, sandbox)
	require.NoError(t, err)
	assert.Equal(t, sandbox, filepath.Dir(s.Path))
	assert.True(t, strings.HasSuffix(s.Path, "_doc.txt"))
	assert.NotEmpty(t, s.ID)

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source moved, not copied")
	data, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.Len(t, data, 10)

	require.NoError(t, Restore(s))
	_, err = os.Stat(src)
	assert.NoError(t, err)
	_, err = os.Stat(s.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestStage_SandboxIsFile(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "doc.txt", 1)
	blocker := writeFile(t, dir, "uploads", 1)

	a, err := NewValidator(nil, 0).Validate(src)
	require.NoError(t, err)

	_, err = Stage(a, blocker)
	require.Error(t, err)
	_, err = os.Stat(src)
	assert.NoError(t, err, "source untouched on failure")
}
