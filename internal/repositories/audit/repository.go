// Package audit persists AuditEvent rows (table audit_log). The table is
// capped: every insert trims the oldest rows beyond the retention limit.
package audit

import (
	"context"

	"github.com/dmitrijs2005/fileguard/internal/models"
)

type Repository interface {
	// Insert appends e, sets e.ID, then evicts the oldest rows so that at
	// most maxEntries remain. maxEntries <= 0 disables trimming. Run it in a
	// transaction to keep insert and trim atomic.
	Insert(ctx context.Context, e *models.AuditEvent, maxEntries int) error
	// List returns events in write order. limit <= 0 returns all of them,
	// otherwise the newest limit events, still oldest first.
	List(ctx context.Context, limit int) ([]*models.AuditEvent, error)
	Count(ctx context.Context) (int64, error)
}
