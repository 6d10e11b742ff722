package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *SQLiteRepository) Create(ctx context.Context, m *models.FileMetadata) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO uploaded_files (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.OriginalFilename, m.FileSize, m.UploadTime.UTC(), m.KeyHash,
		m.BlobLocator, m.KeySalt, m.KDF, m.ContentHash, m.MIMEType, m.Status)
	if err != nil {
		return fmt.Errorf("failed to create metadata[%s]: %w", m.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.FileMetadata, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM uploaded_files WHERE id = ?`, id)
	m, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", id, err)
	}
	return m, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.FileMetadata, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM uploaded_files ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	return collect(rows)
}

func (r *SQLiteRepository) ListByStatus(ctx context.Context, status string, before time.Time) ([]*models.FileMetadata, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM uploaded_files WHERE status = ? AND upload_time < ? ORDER BY rowid`,
		status, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata by status: %w", err)
	}
	return collect(rows)
}

func (r *SQLiteRepository) SetStatus(ctx context.Context, id, from, to string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE uploaded_files SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s] status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM uploaded_files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM uploaded_files WHERE upload_time < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to archive metadata: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func collect(rows *sql.Rows) ([]*models.FileMetadata, error) {
	defer rows.Close()

	var result []*models.FileMetadata
	for rows.Next() {
		m, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metadata rows: %w", err)
	}
	return result, nil
}
