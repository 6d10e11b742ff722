package metadata

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/fileguard/internal/common"
	"github.com/dmitrijs2005/fileguard/internal/dbx"
	"github.com/dmitrijs2005/fileguard/internal/migrations"
	"github.com/dmitrijs2005/fileguard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := dbx.Open(ctx, dbx.SQLite, filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(ctx, db, dbx.SQLite))
	return db
}

func record(id string, uploaded time.Time, status string) *models.FileMetadata {
	return &models.FileMetadata{
		ID:               id,
		OriginalFilename: id + ".txt",
		FileSize:         10,
		UploadTime:       uploaded,
		KeyHash:          "hash-" + id,
		BlobLocator:      "blob-" + id,
		KeySalt:          []byte("0123456789abcdef"),
		KDF:              "pbkdf2-sha256:100000",
		ContentHash:      "content-" + id,
		MIMEType:         "text/plain",
		Status:           status,
	}
}

func TestCreateAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	want := record("a", now, models.StatusCommitted)
	require.NoError(t, r.Create(ctx, want))

	got, err := r.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, want.OriginalFilename, got.OriginalFilename)
	assert.Equal(t, want.KeySalt, got.KeySalt)
	assert.Equal(t, want.BlobLocator, got.BlobLocator)
	assert.True(t, want.UploadTime.Equal(got.UploadTime), "upload time %v != %v", want.UploadTime, got.UploadTime)
}

func TestCreate_DuplicateIDFails(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, record("dup", time.Now(), models.StatusCommitted)))
	err := r.Create(ctx, record("dup", time.Now(), models.StatusCommitted))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create metadata[dup]")
}

func TestGetByID_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	_, err := r.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList_InsertionOrder(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, r.Create(ctx, record("second", now, models.StatusCommitted)))
	require.NoError(t, r.Create(ctx, record("first", now.Add(-time.Hour), models.StatusCommitted)))

	got, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].ID)
	assert.Equal(t, "first", got[1].ID)
}

func TestSetStatusAndListByStatus(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, r.Create(ctx, record("old", now.Add(-2*time.Hour), models.StatusPending)))
	require.NoError(t, r.Create(ctx, record("new", now, models.StatusPending)))

	stale, err := r.ListByStatus(ctx, models.StatusPending, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)

	require.NoError(t, r.SetStatus(ctx, "new", models.StatusPending, models.StatusCommitted))
	assert.ErrorIs(t, r.SetStatus(ctx, "new", models.StatusPending, models.StatusCommitted), common.ErrorNotFound,
		"status transition is guarded by the current status")

	got, err := r.GetByID(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCommitted, got.Status)
}

func TestDeleteOlderThan(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.Create(ctx, record("ancient", now.Add(-100*24*time.Hour), models.StatusCommitted)))
	require.NoError(t, r.Create(ctx, record("today", now, models.StatusCommitted)))

	n, err := r.DeleteOlderThan(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = r.GetByID(ctx, "ancient")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = r.GetByID(ctx, "today")
	assert.NoError(t, err)
}

func TestDelete_Idempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, record("x", time.Now(), models.StatusPending)))
	require.NoError(t, r.Delete(ctx, "x"))
	require.NoError(t, r.Delete(ctx, "x"))
}

func TestClosedDB_ErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	err := r.Create(ctx, record("k", time.Now(), models.StatusPending))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create metadata[k]")

	_, err = r.GetByID(ctx, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get metadata[k]")

	_, err = r.List(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list metadata")

	_, err = r.DeleteOlderThan(ctx, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to archive metadata")
}
