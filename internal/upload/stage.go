package upload

import (
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/fileguard/internal/filex"
	"github.com/google/uuid"
)

// Staged is an admitted file moved into the sandbox. The pipeline owns it
// from here on; the source path no longer exists.
type Staged struct {
	*Admission
	ID   string
	Path string
}

// Stage moves the admitted file into sandboxDir as <uuid>_<filename>.
func Stage(a *Admission, sandboxDir string) (*Staged, error) {
	dir, err := filex.EnsureDir(sandboxDir, 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare sandbox: %w", err)
	}

	id := uuid.NewString()
	dst := filepath.Join(dir, id+"_"+a.Filename)
	if err := filex.Move(a.Path, dst, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage %s: %w", a.Filename, err)
	}

	return &Staged{Admission: a, ID: id, Path: dst}, nil
}

// Restore moves a staged file back to where it was admitted from.
func Restore(s *Staged) error {
	if err := filex.Move(s.Path, s.Admission.Path, 0o600); err != nil {
		return fmt.Errorf("failed to restore %s: %w", s.Filename, err)
	}
	return nil
}
