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

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, b *models.SecureBlob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO secure_files (id, original_filename, file_data, encryption_key_hash, upload_time)
		VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.OriginalFilename, b.Data, b.KeyHash, b.UploadTime.UTC())
	if err != nil {
		return fmt.Errorf("failed to create blob[%s]: %w", b.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.SecureBlob, error) {
	var b models.SecureBlob
	err := r.db.QueryRowContext(ctx,
		`SELECT id, original_filename, file_data, encryption_key_hash, upload_time FROM secure_files WHERE id = ?`, id).
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

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM secure_files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete blob[%s]: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ListOrphans(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id FROM secure_files s
		LEFT JOIN uploaded_files u ON u.blob_locator = s.id
		WHERE u.id IS NULL
		ORDER BY s.rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphan blobs: %w", err)
	}
	return collectIDs(rows)
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan blob id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blob rows: %w", err)
	}
	return ids, nil
}
