package blobs

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
	db, err := dbx.Open(ctx, dbx.SQLite, filepath.Join(t.TempDir(), "blobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(ctx, db, dbx.SQLite))
	return db
}

func blob(id string) *models.SecureBlob {
	return &models.SecureBlob{
		ID:               id,
		OriginalFilename: id + ".pdf",
		Data:             []byte{0x01, 0x02, 0x03},
		KeyHash:          "kh-" + id,
		UploadTime:       time.Now().UTC(),
	}
}

func TestCreateGetDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, blob("b1")))

	got, err := r.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got.Data)
	assert.Equal(t, "kh-b1", got.KeyHash)

	require.NoError(t, r.Delete(ctx, "b1"))
	_, err = r.GetByID(ctx, "b1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListOrphans(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, blob("linked")))
	require.NoError(t, r.Create(ctx, blob("lonely")))

	_, err := db.ExecContext(ctx, `
		INSERT INTO uploaded_files (id, original_filename, file_size, upload_time, encryption_key_hash,
			blob_locator, key_salt, kdf, content_hash, status)
		VALUES ('m1', 'a', 1, ?, 'kh', 'linked', x'00', 'pbkdf2-sha256:1', 'c', 'committed')`, time.Now().UTC())
	require.NoError(t, err)

	ids, err := r.ListOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lonely"}, ids)
}

func TestClosedDB_Errors(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	require.NoError(t, db.Close())
	ctx := context.Background()

	assert.ErrorContains(t, r.Create(ctx, blob("x")), "failed to create blob[x]")
	_, err := r.GetByID(ctx, "x")
	assert.ErrorContains(t, err, "failed to get blob[x]")
	assert.ErrorContains(t, r.Delete(ctx, "x"), "failed to delete blob[x]")
	_, err = r.ListOrphans(ctx)
	assert.ErrorContains(t, err, "failed to list orphan blobs")
}
