package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/fileguard/internal/filex"
	"github.com/google/uuid"
)

// Receive writes an uploaded stream to inboxDir/<uuid>/<filename> so that
// remote uploads enter the pipeline through the same path-based admission
// as local files. At most maxSize+1 bytes are written: enough for Validate
// to report TooLarge without buffering an unbounded body. The returned
// cleanup removes the per-upload directory and whatever is left in it.
func Receive(inboxDir, filename string, r io.Reader, maxSize int64) (string, func(), error) {
	name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(filename, "\\", "/")))
	if name == "/" || name == "." || name == "" {
		return "", nil, fmt.Errorf("invalid filename %q", filename)
	}

	root, err := filex.EnsureDir(inboxDir, 0o700)
	if err != nil {
		return "", nil, err
	}
	dir := filepath.Join(root, uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		cleanup()
		return "", nil, err
	}

	if _, err := io.Copy(f, io.LimitReader(r, maxSize+1)); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to receive %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}

	return path, cleanup, nil
}
