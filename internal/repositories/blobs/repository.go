// Package blobs persists encrypted payloads in the database (table
// secure_files). It is the transactional blob backend; the object-storage
// backend lives in package storage.
package blobs

import (
	"context"

	"github.com/dmitrijs2005/fileguard/internal/models"
)

type Repository interface {
	Create(ctx context.Context, b *models.SecureBlob) error
	GetByID(ctx context.Context, id string) (*models.SecureBlob, error)
	Delete(ctx context.Context, id string) error
	// ListOrphans returns ids of blobs no metadata row points at.
	ListOrphans(ctx context.Context) ([]string, error)
}
