package server

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/fileguard/internal/config"
	"github.com/dmitrijs2005/fileguard/internal/dbx"
	"github.com/dmitrijs2005/fileguard/internal/logging"
	"github.com/dmitrijs2005/fileguard/internal/notify"
	"github.com/dmitrijs2005/fileguard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDSN = filepath.Join(dir, "fileguard.db")
	c.SandboxDir = filepath.Join(dir, "uploads")
	c.QuarantineDir = filepath.Join(dir, "quarantine")
	c.InboxDir = filepath.Join(dir, "inbox")
	c.KDFIterations = 1000
	c.EncryptionPassword = "hunter2hunter2"
	return c
}

func TestNewComponents_SQLite(t *testing.T) {
	c := testConfig(t)
	ctx := context.Background()

	comp, err := NewComponents(ctx, c, logging.Nop{}, []byte(c.EncryptionPassword))
	require.NoError(t, err)
	defer comp.Close()

	ok, err := comp.Storage.CheckIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, isLog := comp.Notifier.(*notify.LogNotifier)
	assert.True(t, isLog, "without SMTP settings notifications go to the log")
	assert.Equal(t, c.QuarantineDir, comp.Quarantine.Dir())
	assert.Equal(t, c.MaxFileSize, comp.Validator.MaxSize())
}

func TestNewComponents_SMTPNotifier(t *testing.T) {
	c := testConfig(t)
	c.SMTPServer = "smtp.example.com"
	c.SenderEmail = "guard@example.com"

	comp, err := NewComponents(context.Background(), c, logging.Nop{}, nil)
	require.NoError(t, err)
	defer comp.Close()

	_, isSMTP := comp.Notifier.(*notify.SMTPNotifier)
	assert.True(t, isSMTP)
}

func TestNewComponents_S3Backend(t *testing.T) {
	c := testConfig(t)
	c.BlobBackend = "s3"
	c.S3Bucket = "vault"
	c.S3Prefix = "tenants/a"

	orig := newS3BlobStore
	t.Cleanup(func() { newS3BlobStore = orig })

	var got storage.S3Config
	newS3BlobStore = func(_ context.Context, sc storage.S3Config) (storage.BlobStore, error) {
		got = sc
		return nil, errors.New("no network in tests")
	}

	_, err := NewComponents(context.Background(), c, logging.Nop{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 init error")
	assert.Equal(t, "vault", got.Bucket)
	assert.Equal(t, "tenants/a", got.Prefix)
	assert.Equal(t, c.S3Region, got.Region)
}

func TestNewComponents_Errors(t *testing.T) {
	c := testConfig(t)
	c.DBDialect = "oracle"
	_, err := NewComponents(context.Background(), c, logging.Nop{}, nil)
	assert.Error(t, err)

	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(context.Context, dbx.Dialect, string) (*sql.DB, error) {
		return nil, errors.New("refused")
	}

	c = testConfig(t)
	_, err = NewComponents(context.Background(), c, logging.Nop{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db init error")
}

func TestNewApp(t *testing.T) {
	c := testConfig(t)
	c.EncryptionPassword = ""

	_, err := NewApp(context.Background(), c)
	assert.ErrorIs(t, err, ErrNoEncryptionPassword)

	c = testConfig(t)
	c.LogLevel = "error"
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, app.components.Close())
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	c := testConfig(t)
	c.LogLevel = "error"
	c.GRPCAddr = "127.0.0.1:0"
	c.HTTPAddr = "127.0.0.1:0"
	c.ClamdAddr = "127.0.0.1:1"

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	cancel()
	<-done

	assert.Error(t, app.components.DB.Ping(), "database should be closed after Run")
}
