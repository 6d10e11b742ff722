package storage

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fileguard/internal/logging"
)

// Maintenance periodically archives old metadata and reconciles pending
// rows left behind by interrupted runs.
type Maintenance struct {
	svc           *Service
	interval      time.Duration
	retentionDays int
	pendingAge    time.Duration
	log           logging.Logger
	done          chan struct{}
}

func NewMaintenance(svc *Service, interval time.Duration, retentionDays int, pendingAge time.Duration, log logging.Logger) *Maintenance {
	if log == nil {
		log = logging.Nop{}
	}
	return &Maintenance{
		svc:           svc,
		interval:      interval,
		retentionDays: retentionDays,
		pendingAge:    pendingAge,
		log:           log.With("module", "maintenance"),
		done:          make(chan struct{}),
	}
}

// Start runs one cycle immediately and then one per interval until ctx is done.
func (m *Maintenance) Start(ctx context.Context) {
	m.log.Info(ctx, "maintenance started", "interval", m.interval)

	go func() {
		defer close(m.done)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.RunOnce(ctx)

		for {
			select {
			case <-ticker.C:
				m.RunOnce(ctx)
			case <-ctx.Done():
				m.log.Info(context.Background(), "maintenance stopping")
				return
			}
		}
	}()
}

// Wait blocks until the loop started by Start has returned.
func (m *Maintenance) Wait() {
	<-m.done
}

func (m *Maintenance) RunOnce(ctx context.Context) {
	if n, err := m.svc.ArchiveOldMetadata(ctx, m.retentionDays); err != nil {
		m.log.Error(ctx, "archive failed", "error", err)
	} else if n > 0 {
		m.log.Info(ctx, "archive cycle complete", "deleted", n)
	}

	report, err := m.svc.Reconcile(ctx, m.pendingAge)
	if err != nil {
		m.log.Error(ctx, "reconcile failed", "error", err)
		return
	}
	if len(report.Orphaned) > 0 || len(report.DanglingBlobs) > 0 {
		m.log.Warn(ctx, "reconcile cycle complete",
			"orphaned", len(report.Orphaned),
			"dangling_blobs", len(report.DanglingBlobs),
		)
	}
}
