// Package storage is the Metadata & Audit Store and the Secure Blob Store
// facade used by the pipeline. Blob bytes go either to the secure_files
// table (DBBlobStore) or to an S3-compatible bucket (S3BlobStore).
package storage

import (
	"context"

	"github.com/dmitrijs2005/fileguard/internal/dbx"
	"github.com/dmitrijs2005/fileguard/internal/models"
	"github.com/dmitrijs2005/fileguard/internal/repositories/repomanager"
)

// BlobStore persists encrypted payloads. db is the handle of the metadata
// database (possibly a transaction); backends outside that database ignore it.
type BlobStore interface {
	// Transactional reports whether Put participates in the db transaction.
	Transactional() bool
	// Locator returns where b will be stored. It is stable for a given blob.
	Locator(b *models.SecureBlob) string
	Put(ctx context.Context, db dbx.DBTX, b *models.SecureBlob) (string, error)
	Get(ctx context.Context, db dbx.DBTX, locator string) ([]byte, error)
	Delete(ctx context.Context, db dbx.DBTX, locator string) error
}

// DBBlobStore keeps blobs in the secure_files table next to their metadata.
type DBBlobStore struct {
	repos repomanager.RepositoryManager
}

func NewDBBlobStore(repos repomanager.RepositoryManager) *DBBlobStore {
	return &DBBlobStore{repos: repos}
}

func (s *DBBlobStore) Transactional() bool { return true }

func (s *DBBlobStore) Locator(b *models.SecureBlob) string { return b.ID }

func (s *DBBlobStore) Put(ctx context.Context, db dbx.DBTX, b *models.SecureBlob) (string, error) {
	if err := s.repos.Blobs(db).Create(ctx, b); err != nil {
		return "", err
	}
	return s.Locator(b), nil
}

func (s *DBBlobStore) Get(ctx context.Context, db dbx.DBTX, locator string) ([]byte, error) {
	b, err := s.repos.Blobs(db).GetByID(ctx, locator)
	if err != nil {
		return nil, err
	}
	return b.Data, nil
}

func (s *DBBlobStore) Delete(ctx context.Context, db dbx.DBTX, locator string) error {
	return s.repos.Blobs(db).Delete(ctx, locator)
}
