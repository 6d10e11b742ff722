// Package quarantine isolates files flagged by the scanner. Artifacts are
// moved, never copied, into the quarantine directory and recorded in a
// JSON manifest. There is no API to read them back.
package quarantine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/fileguard/internal/filex"
	"github.com/dmitrijs2005/fileguard/internal/models"
	"github.com/google/uuid"
)

const ManifestName = "manifest.json"

type Store struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// NewStore creates dir with owner-only permissions if needed.
func NewStore(dir string) (*Store, error) {
	abs, err := filex.EnsureDir(dir, 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare quarantine: %w", err)
	}
	return &Store{dir: abs, now: time.Now}, nil
}

func (s *Store) Dir() string { return s.dir }

// Quarantine moves path into the store and appends a manifest record.
func (s *Store) Quarantine(ctx context.Context, path, threat string) (*models.QuarantineRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	id := uuid.NewString()
	dst := filepath.Join(s.dir, id+"_"+filepath.Base(path))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := filex.Move(path, dst, 0o600); err != nil {
		return nil, fmt.Errorf("failed to quarantine %s: %w", path, err)
	}

	rec := &models.QuarantineRecord{
		ID:             id,
		OriginalPath:   path,
		QuarantinePath: dst,
		Threat:         threat,
		Size:           fi.Size(),
		QuarantinedAt:  s.now().UTC(),
	}

	records, err := s.read()
	if err != nil {
		return rec, err
	}
	records = append(records, rec)
	if err := s.write(records); err != nil {
		return rec, err
	}
	return rec, nil
}

// List returns manifest records in quarantine order.
func (s *Store) List() ([]*models.QuarantineRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() ([]*models.QuarantineRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ManifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var records []*models.QuarantineRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return records, nil
}

func (s *Store) write(records []*models.QuarantineRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := filex.WriteFileAtomic(filepath.Join(s.dir, ManifestName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
