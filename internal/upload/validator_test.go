package upload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(strings.Repeat("a", size)), 0o644))
	return p
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator(nil, 16)

	tests := []struct {
		name   string
		path   string
		reason Reason
	}{
		{"missing", filepath.Join(dir, "nope.txt"), NotFound},
		{"directory", dir, NotFound},
		{"bad extension", writeFile(t, dir, "run.exe", 4), UnsupportedType},
		{"no extension", writeFile(t, dir, "README", 4), UnsupportedType},
		{"too large", writeFile(t, dir, "big.txt", 17), TooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := v.Validate(tt.path)
			require.Error(t, err)
			assert.Nil(t, a)
			assert.True(t, IsReason(err, tt.reason), "got %v", err)
		})
	}
}

func TestValidate_CheckOrder(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator([]string{".txt"}, 4)

	// Both wrong type and too large: type is reported first.
	p := writeFile(t, dir, "big.exe", 100)
	_, err := v.Validate(p)
	assert.True(t, IsReason(err, UnsupportedType))
}

func TestValidate_Accepts(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator([]string{"TXT", ".pdf"}, 16)

	p := writeFile(t, dir, "Notes.TXT", 16)
	a, err := v.Validate(p)
	require.NoError(t, err)
	assert.Equal(t, p, a.Path)
	assert.Equal(t, "Notes.TXT", a.Filename)
	assert.Equal(t, int64(16), a.Size)
	assert.Equal(t, ".txt", a.Extension)
	assert.True(t, strings.HasPrefix(a.MIME, "text/plain"), a.MIME)

	_, err = os.Stat(p)
	assert.NoError(t, err, "validation has no side effects")
}

func TestNewValidator_Defaults(t *testing.T) {
	v := NewValidator(nil, 0)
	assert.Equal(t, DefaultMaxSize, v.MaxSize())
	for _, ext := range []string{".txt", ".pdf", ".docx"} {
		_, ok := v.allowed[ext]
		assert.True(t, ok, ext)
	}
	_, ok := v.allowed[".doc"]
	assert.False(t, ok)
}

func TestAdmissionError_Message(t *testing.T) {
	err := &AdmissionError{Reason: TooLarge, Path: "/x.txt", Detail: "11 bytes"}
	assert.Equal(t, "TooLarge: /x.txt: 11 bytes", err.Error())
	assert.Equal(t, "NotFound: /y.txt", (&AdmissionError{Reason: NotFound, Path: "/y.txt"}).Error())
}
