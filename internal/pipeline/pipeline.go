// Package pipeline is the orchestrator: it takes one file from admission
// through scanning, quarantine or encryption, persistence, and
// notification, and records an audit event for every step that changes
// persistent state or ends the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/fileguard/internal/common"
	"github.com/dmitrijs2005/fileguard/internal/cryptox"
	"github.com/dmitrijs2005/fileguard/internal/logging"
	"github.com/dmitrijs2005/fileguard/internal/models"
	"github.com/dmitrijs2005/fileguard/internal/notify"
	"github.com/dmitrijs2005/fileguard/internal/scanner"
	"github.com/dmitrijs2005/fileguard/internal/storage"
	"github.com/dmitrijs2005/fileguard/internal/upload"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Audit operations.
const (
	OpUpload       = "File Upload"
	OpScan         = "Malware Scan"
	OpEncryption   = "Encryption"
	OpStorage      = "Secure Storage"
	OpNotification = "Notification"
	OpDecryption   = "Decryption"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// auditTimeout bounds audit writes, which run even after the caller is gone.
const auditTimeout = 5 * time.Second

type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeQuarantined Outcome = "quarantined"
	OutcomeFailed      Outcome = "failed"
)

// Result is the single externally visible answer of Process.
type Result struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Outcome Outcome `json:"outcome"`
	FileID  string  `json:"file_id,omitempty"`
	Err     error   `json:"-"`
}

// Store is the persistence the pipeline needs.
type Store interface {
	StoreFile(ctx context.Context, m *models.FileMetadata, b *models.SecureBlob) error
	LogAuditEvent(ctx context.Context, op, details, status string, sev models.Severity) error
	GetFile(ctx context.Context, id string) (*models.FileMetadata, []byte, error)
}

type Quarantine interface {
	Quarantine(ctx context.Context, path, threat string) (*models.QuarantineRecord, error)
}

type Config struct {
	Password        []byte
	KDF             cryptox.KDFParams
	KeyValidity     time.Duration
	SandboxDir      string
	ScanTimeout     time.Duration
	NotifyTimeout   time.Duration
	Recipient       string
	NotifyOnSuccess bool
}

type Pipeline struct {
	cfg        Config
	validator  *upload.Validator
	scanner    scanner.Scanner
	quarantine Quarantine
	store      Store
	notifier   notify.Notifier
	log        logging.Logger
	now        func() time.Time
}

func New(cfg Config, v *upload.Validator, s scanner.Scanner, q Quarantine, st Store, n notify.Notifier, log logging.Logger) *Pipeline {
	if log == nil {
		log = logging.Nop{}
	}
	if cfg.KDF.Algorithm == "" {
		cfg.KDF = cryptox.DefaultKDF()
	}
	if cfg.KeyValidity <= 0 {
		cfg.KeyValidity = cryptox.DefaultValidity
	}
	if cfg.SandboxDir == "" {
		cfg.SandboxDir = "uploads"
	}
	return &Pipeline{
		cfg:        cfg,
		validator:  v,
		scanner:    s,
		quarantine: q,
		store:      st,
		notifier:   n,
		log:        log.With("module", "pipeline"),
		now:        time.Now,
	}
}

func failed(err error, msg string) Result {
	return Result{Status: StatusFailure, Message: msg, Outcome: OutcomeFailed, Err: err}
}

// SuspiciousMessage is the Result.Message of a run stopped by a threat.
func SuspiciousMessage(threat string) string {
	return "Suspicious file detected: " + threat
}

// Process runs one file through the pipeline. It never panics on bad
// input and always returns a Result; Result.Err carries the typed error.
//
// Only the scan and notify calls follow ctx cancellation. Quarantine,
// persistence, and audit writes run to completion so that a caller who
// goes away still leaves a consistent store and audit trail.
func (p *Pipeline) Process(ctx context.Context, path string) Result {
	r := newRun(p, path)

	adm, err := p.validator.Validate(path)
	if err != nil {
		r.audit(ctx, OpUpload, fmt.Sprintf("Failed to upload %s. Error: %v", path, err), StatusFailure, models.SeverityWarning)
		r.advance(ctx, StateDone)
		return failed(err, err.Error())
	}

	staged, err := upload.Stage(adm, p.cfg.SandboxDir)
	if err != nil {
		perr := &ProcessingError{Reason: ReasonStagingFailed, Err: err}
		r.audit(ctx, OpUpload, fmt.Sprintf("Failed to upload %s. Error: %v", path, err), StatusFailure, models.SeverityError)
		r.advance(ctx, StateDone)
		return failed(perr, "upload failed")
	}
	r.staged = staged
	r.audit(ctx, OpUpload, fmt.Sprintf("Uploaded %s to sandbox.", path), StatusSuccess, models.SeverityInfo)
	r.advance(ctx, StateValidated)

	verdict, err := p.scan(ctx, r)
	if err != nil {
		serr := &ScanError{Reason: ReasonOracleUnavailable, Err: err}
		r.audit(ctx, OpScan, fmt.Sprintf("Scan failed for %s: %v", path, err), StatusFailure, models.SeverityError)
		r.restore(ctx)
		r.advance(ctx, StateDone)
		return failed(serr, "malware scan unavailable")
	}

	if verdict.Status == scanner.Suspicious {
		return p.quarantineRun(ctx, r, verdict.Threat)
	}

	r.advance(ctx, StateClean)
	r.audit(ctx, OpScan, fmt.Sprintf("File scanned successfully: %s", path), StatusSuccess, models.SeverityInfo)

	return p.secure(ctx, r)
}

func (p *Pipeline) scan(ctx context.Context, r *run) (scanner.Verdict, error) {
	r.advance(ctx, StateScanning)

	sctx := ctx
	if p.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, p.cfg.ScanTimeout)
		defer cancel()
	}

	v, err := p.scanner.Scan(sctx, r.staged.Path)
	if err != nil {
		return scanner.Verdict{}, err
	}
	if v.Status == scanner.Suspicious {
		return v, nil
	}
	if err := sctx.Err(); err != nil {
		return scanner.Verdict{}, fmt.Errorf("%w: %w", scanner.ErrOracleUnavailable, err)
	}
	if v.Status != scanner.Clean && v.Status != scanner.Suspicious {
		return scanner.Verdict{}, fmt.Errorf("%w: unknown verdict %q", scanner.ErrOracleUnavailable, v.Status)
	}
	return v, nil
}

func (p *Pipeline) quarantineRun(ctx context.Context, r *run, threat string) Result {
	r.advance(ctx, StateSuspicious)
	tErr := &ThreatDetected{Label: threat}

	rec, err := p.quarantine.Quarantine(context.WithoutCancel(ctx), r.staged.Path, threat)
	if err != nil && rec == nil {
		// The file stays in the sandbox; it must not go back to the inbox.
		r.audit(ctx, OpScan,
			fmt.Sprintf("Suspicious file detected: %s. Quarantine of %s failed: %v", threat, r.staged.Path, err),
			StatusFailure, models.SeverityError)
		r.advance(ctx, StateDone)
		return failed(&ProcessingError{Reason: ReasonQuarantineFailed, Err: errors.Join(tErr, err)},
			SuspiciousMessage(threat))
	}

	r.advance(ctx, StateQuarantined)
	details := SuspiciousMessage(threat)
	if err != nil {
		// moved, but the manifest was not updated
		p.log.Error(ctx, "quarantine manifest not updated", "run", r.id, "path", rec.QuarantinePath, "error", err)
		details = fmt.Sprintf("%s. Quarantined to %s; manifest update failed: %v", details, rec.QuarantinePath, err)
	}
	r.audit(ctx, OpScan, details, StatusFailure, models.SeverityWarning)

	r.advance(ctx, StateNotifying)
	p.notify(ctx, r, "Malware Alert",
		fmt.Sprintf("A suspicious file was detected and quarantined: %s\nThreat: %s", rec.QuarantinePath, threat))

	r.advance(ctx, StateDone)
	return Result{
		Status:  StatusFailure,
		Message: SuspiciousMessage(threat),
		Outcome: OutcomeQuarantined,
		Err:     tErr,
	}
}

func (p *Pipeline) secure(ctx context.Context, r *run) Result {
	r.advance(ctx, StateEncrypting)
	name := r.staged.Filename

	data, err := readStaged(r.staged.Path, p.validator.MaxSize())
	if err != nil {
		var rerr error = &CryptoError{Reason: ReasonEncryptionFailed, Err: err}
		msg := "encryption failed"
		if upload.IsReason(err, upload.TooLarge) {
			rerr, msg = err, err.Error()
		}
		r.audit(ctx, OpEncryption, fmt.Sprintf("Failed to read %s: %v", name, err), StatusFailure, models.SeverityError)
		r.restore(ctx)
		r.advance(ctx, StateDone)
		return failed(rerr, msg)
	}
	defer common.WipeByteArray(data)

	key, err := cryptox.DeriveKey(p.cfg.Password, nil, p.cfg.KDF)
	if err != nil {
		cerr := &CryptoError{Reason: ReasonKeyDerivationFailed, Err: err}
		r.audit(ctx, OpEncryption, fmt.Sprintf("Key derivation failed for %s: %v", name, err), StatusFailure, models.SeverityError)
		r.restore(ctx)
		r.advance(ctx, StateDone)
		return failed(cerr, "encryption failed")
	}
	defer key.Wipe()

	payload, err := cryptox.Encrypt(data, key.Material)
	if err != nil {
		cerr := &CryptoError{Reason: ReasonEncryptionFailed, Err: err}
		r.audit(ctx, OpEncryption, fmt.Sprintf("Encryption failed for %s: %v", name, err), StatusFailure, models.SeverityError)
		r.restore(ctx)
		r.advance(ctx, StateDone)
		return failed(cerr, "encryption failed")
	}

	keyHash := cryptox.HashKey(key.Material)
	r.audit(ctx, OpEncryption, fmt.Sprintf("File encrypted: %s", name), StatusSuccess, models.SeverityInfo)

	r.advance(ctx, StatePersisting)
	now := p.now().UTC()
	id := uuid.NewString()
	meta := &models.FileMetadata{
		ID:               id,
		OriginalFilename: name,
		FileSize:         int64(len(data)),
		UploadTime:       now,
		KeyHash:          keyHash,
		KeySalt:          key.Salt,
		KDF:              p.cfg.KDF.String(),
		ContentHash:      cryptox.ContentHash(data),
		MIMEType:         r.staged.MIME,
	}
	blob := &models.SecureBlob{
		ID:               id,
		OriginalFilename: name,
		Data:             payload,
		KeyHash:          keyHash,
		UploadTime:       now,
	}

	if err := p.store.StoreFile(context.WithoutCancel(ctx), meta, blob); err != nil {
		perr := &PersistenceError{Reason: ReasonMetadataWriteFailed, Store: "metadata", FileID: id, Err: err}
		if errors.Is(err, storage.ErrBlobWrite) {
			perr.Reason, perr.Store = ReasonBlobWriteFailed, "blob"
		}
		r.audit(ctx, OpStorage,
			fmt.Sprintf("Failed to store %s as %s: %s write failed: %v", name, id, perr.Store, err),
			StatusFailure, models.SeverityError)
		r.restore(ctx)
		r.advance(ctx, StateDone)
		return failed(perr, "secure storage failed")
	}

	r.audit(ctx, OpStorage, fmt.Sprintf("File moved to secure storage: %s (%s)", meta.BlobLocator, name), StatusSuccess, models.SeverityInfo)

	if err := os.Remove(r.staged.Path); err != nil {
		p.log.Error(ctx, "failed to remove staged plaintext", "path", r.staged.Path, "error", err)
	}

	if p.cfg.NotifyOnSuccess {
		r.advance(ctx, StateNotifying)
		p.notify(ctx, r, "File Secured", fmt.Sprintf("File %s was encrypted and stored as %s", name, id))
	}

	r.advance(ctx, StateDone)
	return Result{Status: StatusSuccess, Message: "File processed successfully", Outcome: OutcomeSuccess, FileID: id}
}

// notify makes one best-effort attempt and audits the result.
func (p *Pipeline) notify(ctx context.Context, r *run, subject, body string) {
	if p.notifier == nil {
		return
	}

	nctx := ctx
	if p.cfg.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		nctx, cancel = context.WithTimeout(ctx, p.cfg.NotifyTimeout)
		defer cancel()
	}

	if err := p.notifier.Notify(nctx, subject, body, p.cfg.Recipient); err != nil {
		nerr := &NotificationError{Err: err}
		r.audit(ctx, OpNotification, fmt.Sprintf("Failed to send %q: %v", subject, nerr), StatusFailure, models.SeverityWarning)
		return
	}
	r.audit(ctx, OpNotification, fmt.Sprintf("Sent %q", subject), StatusSuccess, models.SeverityInfo)
}

// ProcessBatch processes paths concurrently with at most workers runs in
// flight. Results are in input order.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string, workers int) []Result {
	if workers <= 0 {
		workers = 1
	}

	results := make([]Result, len(paths))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i] = p.Process(ctx, path)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Decrypt recovers the plaintext of a stored file. The key is re-derived
// from the recorded salt and must match the recorded key hash; the
// plaintext must match the recorded content hash. Any mismatch fails
// closed with IntegrityViolation.
func (p *Pipeline) Decrypt(ctx context.Context, id string, password []byte) ([]byte, *models.FileMetadata, error) {
	meta, payload, err := p.store.GetFile(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	plaintext, err := p.open(meta, payload, password)
	if err != nil {
		p.auditEvent(ctx, OpDecryption, fmt.Sprintf("Failed to decrypt %s: %v", id, err), StatusFailure, models.SeverityError)
		return nil, nil, err
	}

	if cryptox.IsExpired(meta.UploadTime, p.now(), p.cfg.KeyValidity) {
		p.log.Warn(ctx, "encryption key expired; file should be re-encrypted", "id", id, "uploaded", meta.UploadTime)
	}

	p.auditEvent(ctx, OpDecryption, fmt.Sprintf("File decrypted: %s", id), StatusSuccess, models.SeverityInfo)
	return plaintext, meta, nil
}

func (p *Pipeline) open(meta *models.FileMetadata, payload, password []byte) ([]byte, error) {
	params, err := cryptox.ParseKDFParams(meta.KDF)
	if err != nil {
		return nil, &CryptoError{Reason: ReasonKeyDerivationFailed, Err: err}
	}

	key, err := cryptox.DeriveKey(password, meta.KeySalt, params)
	if err != nil {
		return nil, &CryptoError{Reason: ReasonKeyDerivationFailed, Err: err}
	}
	defer key.Wipe()

	if cryptox.HashKey(key.Material) != meta.KeyHash {
		return nil, &CryptoError{Reason: ReasonIntegrityViolation, Err: errors.New("derived key does not match recorded key hash")}
	}

	plaintext, err := cryptox.Decrypt(payload, key.Material)
	if err != nil {
		return nil, &CryptoError{Reason: ReasonIntegrityViolation, Err: err}
	}

	if cryptox.ContentHash(plaintext) != meta.ContentHash {
		common.WipeByteArray(plaintext)
		return nil, &CryptoError{Reason: ReasonIntegrityViolation, Err: cryptox.ErrIntegrityViolation}
	}
	return plaintext, nil
}

// readStaged reads at most maxSize bytes; a file that grew past the limit
// since admission is rejected as TooLarge.
func readStaged(path string, maxSize int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		common.WipeByteArray(data)
		return nil, err
	}
	if int64(len(data)) > maxSize {
		common.WipeByteArray(data)
		return nil, &upload.AdmissionError{Reason: upload.TooLarge, Path: path,
			Detail: fmt.Sprintf("grew past %d bytes after admission", maxSize)}
	}
	return data, nil
}

func (p *Pipeline) auditEvent(ctx context.Context, op, details, status string, sev models.Severity) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := p.store.LogAuditEvent(actx, op, details, status, sev); err != nil {
		p.log.Error(ctx, "failed to write audit event", "operation", op, "error", err)
	}
}
