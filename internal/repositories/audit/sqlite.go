package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fileguard/internal/dbx"
	"github.com/dmitrijs2005/fileguard/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.AuditEvent, maxEntries int) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (operation, timestamp, details, status, log_level) VALUES (?, ?, ?, ?, ?)`,
		e.Operation, e.Timestamp.UTC(), e.Details, e.Status, string(e.Severity))
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}

	if maxEntries <= 0 {
		return nil
	}
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM audit_log WHERE id NOT IN (SELECT id FROM audit_log ORDER BY id DESC LIMIT ?)`, maxEntries)
	if err != nil {
		return fmt.Errorf("failed to trim audit log: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, `
			SELECT id, operation, timestamp, details, status, log_level FROM (
				SELECT * FROM audit_log ORDER BY id DESC LIMIT ?
			) ORDER BY id`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT id, operation, timestamp, details, status, log_level FROM audit_log ORDER BY id`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return collect(rows)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return n, nil
}

func collect(rows *sql.Rows) ([]*models.AuditEvent, error) {
	defer rows.Close()

	var result []*models.AuditEvent
	for rows.Next() {
		var (
			e     models.AuditEvent
			level string
		)
		if err := rows.Scan(&e.ID, &e.Operation, &e.Timestamp, &e.Details, &e.Status, &level); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		e.Severity = models.Severity(level)
		e.Timestamp = e.Timestamp.UTC()
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit rows: %w", err)
	}
	return result, nil
}
