package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileguard/internal/common"
	"github.com/dmitrijs2005/fileguard/internal/cryptox"
	"github.com/dmitrijs2005/fileguard/internal/dbx"
	"github.com/dmitrijs2005/fileguard/internal/logging"
	"github.com/dmitrijs2005/fileguard/internal/models"
	"github.com/dmitrijs2005/fileguard/internal/repositories/repomanager"
)

// DefaultAuditMaxEntries is the audit log cap.
const DefaultAuditMaxEntries = 1000

var (
	ErrMetadataWrite = errors.New("metadata write failed")
	ErrBlobWrite     = errors.New("blob write failed")
	ErrNotCommitted  = errors.New("file is not committed")
)

type Service struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	blobs    BlobStore
	log      logging.Logger
	auditMax int
	now      func() time.Time
}

func NewService(db *sql.DB, repos repomanager.RepositoryManager, blobs BlobStore, log logging.Logger, auditMax int) *Service {
	if log == nil {
		log = logging.Nop{}
	}
	return &Service{
		db:       db,
		repos:    repos,
		blobs:    blobs,
		log:      log.With("module", "storage"),
		auditMax: auditMax,
		now:      time.Now,
	}
}

// StoreMetadata inserts one metadata row on its own.
func (s *Service) StoreMetadata(ctx context.Context, m *models.FileMetadata) error {
	if err := s.repos.Metadata(s.db).Create(ctx, m); err != nil {
		return fmt.Errorf("%w: %w", ErrMetadataWrite, err)
	}
	return nil
}

// StoreSecureFile writes one blob on its own and returns its locator.
func (s *Service) StoreSecureFile(ctx context.Context, b *models.SecureBlob) (string, error) {
	loc, err := s.blobs.Put(ctx, s.db, b)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBlobWrite, err)
	}
	return loc, nil
}

// StoreFile writes metadata then blob. With a transactional blob store both
// rows commit together and m is stored as committed. Otherwise m is stored
// pending, the blob is written, and m is flipped to committed; a failed blob
// write deletes the pending row again. A row left pending (crash, failed
// flip) is found later by Reconcile.
func (s *Service) StoreFile(ctx context.Context, m *models.FileMetadata, b *models.SecureBlob) error {
	m.BlobLocator = s.blobs.Locator(b)

	if s.blobs.Transactional() {
		m.Status = models.StatusCommitted
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := s.repos.Metadata(tx).Create(ctx, m); err != nil {
				return fmt.Errorf("%w: %w", ErrMetadataWrite, err)
			}
			if _, err := s.blobs.Put(ctx, tx, b); err != nil {
				return fmt.Errorf("%w: %w", ErrBlobWrite, err)
			}
			return nil
		})
	}

	m.Status = models.StatusPending
	meta := s.repos.Metadata(s.db)
	if err := meta.Create(ctx, m); err != nil {
		return fmt.Errorf("%w: %w", ErrMetadataWrite, err)
	}

	if _, err := s.blobs.Put(ctx, s.db, b); err != nil {
		if derr := meta.Delete(ctx, m.ID); derr != nil {
			s.log.Error(ctx, "failed to remove pending metadata", "id", m.ID, "error", derr)
		}
		return fmt.Errorf("%w: %w", ErrBlobWrite, err)
	}

	if err := meta.SetStatus(ctx, m.ID, models.StatusPending, models.StatusCommitted); err != nil {
		return fmt.Errorf("%w: failed to commit metadata[%s]: %w", ErrMetadataWrite, m.ID, err)
	}
	m.Status = models.StatusCommitted
	return nil
}

// LogAuditEvent appends an audit event and trims the log to the cap in one
// transaction. The event is mirrored to the process log at its severity.
func (s *Service) LogAuditEvent(ctx context.Context, op, details, status string, sev models.Severity) error {
	if !sev.Valid() {
		return fmt.Errorf("invalid severity %q", sev)
	}
	if status != models.AuditSuccess && status != models.AuditFailure {
		return fmt.Errorf("invalid audit status %q", status)
	}

	e := &models.AuditEvent{
		Operation: op,
		Timestamp: s.now().UTC(),
		Details:   details,
		Status:    status,
		Severity:  sev,
	}

	switch sev {
	case models.SeverityDebug:
		s.log.Debug(ctx, details, "operation", op, "status", status)
	case models.SeverityWarning:
		s.log.Warn(ctx, details, "operation", op, "status", status)
	case models.SeverityError:
		s.log.Error(ctx, details, "operation", op, "status", status)
	default:
		s.log.Info(ctx, details, "operation", op, "status", status)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repos.Audit(tx).Insert(ctx, e, s.auditMax)
	})
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}
	return nil
}

// FetchAuditLogs returns audit events oldest first; limit > 0 keeps the newest limit.
func (s *Service) FetchAuditLogs(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	return s.repos.Audit(s.db).List(ctx, limit)
}

// ArchiveOldMetadata deletes metadata rows uploaded more than days ago. It
// touches neither the audit log nor the blob store.
func (s *Service) ArchiveOldMetadata(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("retention days must not be negative: %d", days)
	}
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	n, err := s.repos.Metadata(s.db).DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "archived old metadata", "deleted", n, "cutoff", cutoff)
	return n, nil
}

func (s *Service) CheckIntegrity(ctx context.Context) (bool, error) {
	return s.repos.CheckIntegrity(ctx, s.db)
}

// GetFile returns the metadata and encrypted payload of a committed file.
func (s *Service) GetFile(ctx context.Context, id string) (*models.FileMetadata, []byte, error) {
	m, err := s.repos.Metadata(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if m.Status != models.StatusCommitted {
		return nil, nil, fmt.Errorf("%w: %s is %s", ErrNotCommitted, id, m.Status)
	}
	data, err := s.blobs.Get(ctx, s.db, m.BlobLocator)
	if err != nil {
		return nil, nil, err
	}
	return m, data, nil
}

// ExpiredKeys lists committed files whose key is older than validity and
// should be re-encrypted.
func (s *Service) ExpiredKeys(ctx context.Context, validity time.Duration) ([]*models.FileMetadata, error) {
	now := s.now()
	rows, err := s.repos.Metadata(s.db).ListByStatus(ctx, models.StatusCommitted, now)
	if err != nil {
		return nil, err
	}
	var expired []*models.FileMetadata
	for _, m := range rows {
		if cryptox.IsExpired(m.UploadTime, now, validity) {
			expired = append(expired, m)
		}
	}
	return expired, nil
}

// ReconcileReport lists what a reconciliation pass found.
type ReconcileReport struct {
	Orphaned      []string
	DanglingBlobs []string
}

// Reconcile marks pending rows older than olderThan as orphaned and reports
// blobs in the database that no metadata row points at. Both are left for
// operator cleanup.
func (s *Service) Reconcile(ctx context.Context, olderThan time.Duration) (*ReconcileReport, error) {
	meta := s.repos.Metadata(s.db)
	stale, err := meta.ListByStatus(ctx, models.StatusPending, s.now().Add(-olderThan))
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{}
	for _, m := range stale {
		err := meta.SetStatus(ctx, m.ID, models.StatusPending, models.StatusOrphaned)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return report, err
		}
		report.Orphaned = append(report.Orphaned, m.ID)

		details := fmt.Sprintf("Orphaned metadata %s for %s (blob %s)", m.ID, m.OriginalFilename, m.BlobLocator)
		if err := s.LogAuditEvent(ctx, "Reconciliation", details, models.AuditFailure, models.SeverityWarning); err != nil {
			return report, err
		}
	}

	if s.blobs.Transactional() {
		ids, err := s.repos.Blobs(s.db).ListOrphans(ctx)
		if err != nil {
			return report, err
		}
		report.DanglingBlobs = ids
		if len(ids) > 0 {
			s.log.Warn(ctx, "blobs without metadata", "count", len(ids))
		}
	}

	return report, nil
}
