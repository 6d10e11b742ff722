package server

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fileguard/internal/config"
	"github.com/dmitrijs2005/fileguard/internal/cryptox"
	"github.com/dmitrijs2005/fileguard/internal/dbx"
	"github.com/dmitrijs2005/fileguard/internal/logging"
	"github.com/dmitrijs2005/fileguard/internal/notify"
	"github.com/dmitrijs2005/fileguard/internal/pipeline"
	"github.com/dmitrijs2005/fileguard/internal/quarantine"
	"github.com/dmitrijs2005/fileguard/internal/repositories/repomanager"
	"github.com/dmitrijs2005/fileguard/internal/scanner"
	"github.com/dmitrijs2005/fileguard/internal/storage"
	"github.com/dmitrijs2005/fileguard/internal/upload"
)

// Components is the object graph shared by the server and the CLI.
type Components struct {
	DB         *sql.DB
	Repos      repomanager.RepositoryManager
	Storage    *storage.Service
	Quarantine *quarantine.Store
	Scanner    *scanner.ClamdScanner
	Notifier   notify.Notifier
	Validator  *upload.Validator
	Pipeline   *pipeline.Pipeline
}

// seams for tests
var (
	openDB         = dbx.Open
	newS3BlobStore = func(ctx context.Context, c storage.S3Config) (storage.BlobStore, error) {
		return storage.NewS3BlobStore(ctx, c)
	}
)

// NewComponents opens the database, applies migrations and builds every
// component from c. password keys the pipeline; it may be empty for
// callers that never process or decrypt.
func NewComponents(ctx context.Context, c *config.Config, log logging.Logger, password []byte) (*Components, error) {

	dialect, err := dbx.ParseDialect(c.DBDialect)
	if err != nil {
		return nil, err
	}

	repos, err := repomanager.New(dialect)
	if err != nil {
		return nil, err
	}

	db, err := openDB(ctx, dialect, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	comp, err := build(ctx, c, log, password, db, repos)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return comp, nil
}

func build(ctx context.Context, c *config.Config, log logging.Logger, password []byte, db *sql.DB, repos repomanager.RepositoryManager) (*Components, error) {

	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	var blobs storage.BlobStore
	switch c.BlobBackend {
	case "s3":
		s3, err := newS3BlobStore(ctx, storage.S3Config{
			Region:       c.S3Region,
			Bucket:       c.S3Bucket,
			Prefix:       c.S3Prefix,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		blobs = s3
	case "", "db":
		blobs = storage.NewDBBlobStore(repos)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}

	svc := storage.NewService(db, repos, blobs, log, c.AuditMaxEntries)

	q, err := quarantine.NewStore(c.QuarantineDir)
	if err != nil {
		return nil, fmt.Errorf("quarantine init error: %w", err)
	}

	var n notify.Notifier
	if c.SMTPEnabled() {
		n = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:      c.SMTPServer,
			Port:      c.SMTPPort,
			Username:  c.SenderEmail,
			Password:  c.SenderPassword,
			From:      c.SenderEmail,
			Recipient: c.RecipientEmail,
			Timeout:   c.NotifyTimeout,
		})
	} else {
		n = notify.NewLogNotifier(log, c.RecipientEmail)
	}

	sc := scanner.NewClamdScanner(c.ClamdAddr, c.ScanTimeout)
	v := upload.NewValidator(c.AllowedExtensions, c.MaxFileSize)

	p := pipeline.New(pipeline.Config{
		Password:        password,
		KDF:             cryptox.KDFParams{Algorithm: cryptox.Algorithm(c.KDFAlgorithm), Iterations: c.KDFIterations},
		KeyValidity:     c.KeyValidity,
		SandboxDir:      c.SandboxDir,
		ScanTimeout:     c.ScanTimeout,
		NotifyTimeout:   c.NotifyTimeout,
		Recipient:       c.RecipientEmail,
		NotifyOnSuccess: c.NotifyOnSuccess,
	}, v, sc, q, svc, n, log)

	return &Components{
		DB:         db,
		Repos:      repos,
		Storage:    svc,
		Quarantine: q,
		Scanner:    sc,
		Notifier:   n,
		Validator:  v,
		Pipeline:   p,
	}, nil
}

func (c *Components) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
