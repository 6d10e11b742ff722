package blobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fileguard/internal/common"
	"github.com/dmitrijs2005/fileguard/internal/dbx"
	"github.com/dmitrijs2005/fileguard/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, b *models.SecureBlob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO secure_files (id, original_filename, file_data, encryption_key_hash, upload_time)
		VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.OriginalFilename, b.Data, b.KeyHash, b.UploadTime.UTC())
	if err != nil {
		return fmt.Errorf("failed to create blob[%s]: %w", b.ID, err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.SecureBlob, error) {
	var b models.SecureBlob
	err := r.db.QueryRowContext(ctx,
		`SELECT id, original_filename, file_data, encryption_key_hash, upload_time FROM secure_files WHERE id = $1`, id).
		Scan(&b.ID, &b.OriginalFilename, &b.Data, &b.KeyHash, &b.UploadTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob[%s]: %w", id, err)
	}
	b.UploadTime = b.UploadTime.UTC()
	return &b, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM secure_files WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete blob[%s]: %w", id, err)
	}
	return nil
}

func (r *PostgresRepository) ListOrphans(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id FROM secure_files s
		LEFT JOIN uploaded_files u ON u.blob_locator = s.id::text
		WHERE u.id IS NULL
		ORDER BY s.upload_time`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphan blobs: %w", err)
	}
	return collectIDs(rows)
}
