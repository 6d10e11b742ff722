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

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.FileMetadata) error {
	query := `
		INSERT INTO uploaded_files (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.OriginalFilename, m.FileSize, m.UploadTime.UTC(), m.KeyHash,
		m.BlobLocator, m.KeySalt, m.KDF, m.ContentHash, m.MIMEType, m.Status)
	if err != nil {
		return fmt.Errorf("failed to create metadata[%s]: %w", m.ID, err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.FileMetadata, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM uploaded_files WHERE id = $1`, id)
	m, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", id, err)
	}
	return m, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.FileMetadata, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM uploaded_files ORDER BY upload_time, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	return collect(rows)
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status string, before time.Time) ([]*models.FileMetadata, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM uploaded_files WHERE status = $1 AND upload_time < $2 ORDER BY upload_time, id`,
		status, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata by status: %w", err)
	}
	return collect(rows)
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id, from, to string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE uploaded_files SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
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

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM uploaded_files WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", id, err)
	}
	return nil
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM uploaded_files WHERE upload_time < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to archive metadata: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
