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

// SQLiteRepositoryManager vends SQLite-backed repositories.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Dialect() dbx.Dialect { return dbx.SQLite }

func (m *SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Audit(db dbx.DBTX) audit.Repository {
	return audit.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Blobs(db dbx.DBTX) blobs.Repository {
	return blobs.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrateUp(ctx, db, dbx.SQLite)
}

// CheckIntegrity runs PRAGMA integrity_check, which answers a single "ok"
// row for a healthy file and one row per problem otherwise.
func (m *SQLiteRepositoryManager) CheckIntegrity(ctx context.Context, db dbx.DBTX) (bool, error) {
	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return false, fmt.Errorf("failed to run integrity check: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return false, fmt.Errorf("failed to scan integrity result: %w", err)
		}
		results = append(results, line)
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to read integrity result: %w", err)
	}

	return len(results) == 1 && results[0] == "ok", nil
}
