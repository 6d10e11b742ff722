package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fileguard/internal/dbx"
	"github.com/dmitrijs2005/fileguard/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, e *models.AuditEvent, maxEntries int) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO audit_log (operation, timestamp, details, status, log_level) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		e.Operation, e.Timestamp.UTC(), e.Details, e.Status, string(e.Severity)).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	if maxEntries <= 0 {
		return nil
	}
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM audit_log WHERE id NOT IN (SELECT id FROM audit_log ORDER BY id DESC LIMIT $1)`, maxEntries)
	if err != nil {
		return fmt.Errorf("failed to trim audit log: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, `
			SELECT id, operation, timestamp, details, status, log_level FROM (
				SELECT * FROM audit_log ORDER BY id DESC LIMIT $1
			) recent ORDER BY id`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT id, operation, timestamp, details, status, log_level FROM audit_log ORDER BY id`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return collect(rows)
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return n, nil
}
