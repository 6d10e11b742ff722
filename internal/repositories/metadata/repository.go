// Package metadata persists FileMetadata rows (table uploaded_files).
package metadata

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fileguard/internal/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.FileMetadata) error
	GetByID(ctx context.Context, id string) (*models.FileMetadata, error)
	List(ctx context.Context) ([]*models.FileMetadata, error)
	// ListByStatus returns rows with the given status uploaded before the cutoff.
	ListByStatus(ctx context.Context, status string, before time.Time) ([]*models.FileMetadata, error)
	// SetStatus moves a row from one status to another. It fails with
	// common.ErrorNotFound when no row has that id and status.
	SetStatus(ctx context.Context, id, from, to string) error
	Delete(ctx context.Context, id string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

const columns = `id, original_filename, file_size, upload_time, encryption_key_hash, blob_locator, key_salt, kdf, content_hash, mime_type, status`

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (*models.FileMetadata, error) {
	var m models.FileMetadata
	if err := s.Scan(&m.ID, &m.OriginalFilename, &m.FileSize, &m.UploadTime, &m.KeyHash,
		&m.BlobLocator, &m.KeySalt, &m.KDF, &m.ContentHash, &m.MIMEType, &m.Status); err != nil {
		return nil, err
	}
	m.UploadTime = m.UploadTime.UTC()
	return &m, nil
}
