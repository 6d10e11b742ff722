package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fileguard/internal/dbx"
	"github.com/dmitrijs2005/fileguard/internal/repositories/audit"
	"github.com/dmitrijs2005/fileguard/internal/repositories/blobs"
	"github.com/dmitrijs2005/fileguard/internal/repositories/metadata"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Dialect() dbx.Dialect { return dbx.Postgres }

func (m *PostgresRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Audit(db dbx.DBTX) audit.Repository {
	return audit.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Blobs(db dbx.DBTX) blobs.Repository {
	return blobs.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrateUp(ctx, db, dbx.Postgres)
}

var requiredTables = []string{"uploaded_files", "audit_log", "secure_files"}

// CheckIntegrity verifies that the schema is present and that no committed
// metadata row points at a missing blob. Postgres has no whole-database
// checksum equivalent to SQLite's integrity_check.
func (m *PostgresRepositoryManager) CheckIntegrity(ctx context.Context, db dbx.DBTX) (bool, error) {
	var tables int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name IN ($1, $2, $3)`,
		requiredTables[0], requiredTables[1], requiredTables[2]).Scan(&tables)
	if err != nil {
		return false, fmt.Errorf("failed to run integrity check: %w", err)
	}
	if tables != len(requiredTables) {
		return false, nil
	}

	var dangling int
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM uploaded_files u
		LEFT JOIN secure_files s ON s.id::text = u.blob_locator
		WHERE u.status = 'committed' AND u.blob_locator NOT LIKE 's3://%' AND s.id IS NULL`).Scan(&dangling)
	if err != nil {
		return false, fmt.Errorf("failed to run integrity check: %w", err)
	}
	return dangling == 0, nil
}
