// Package repomanager vends dialect-specific repositories bound to a
// dbx.DBTX and owns schema migrations and structural integrity checks.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fileguard/internal/dbx"
	"github.com/dmitrijs2005/fileguard/internal/migrations"
	"github.com/dmitrijs2005/fileguard/internal/repositories/audit"
	"github.com/dmitrijs2005/fileguard/internal/repositories/blobs"
	"github.com/dmitrijs2005/fileguard/internal/repositories/metadata"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(ctx context.Context, db *sql.DB) error
	CheckIntegrity(ctx context.Context, db dbx.DBTX) (bool, error)
	Metadata(db dbx.DBTX) metadata.Repository
	Audit(db dbx.DBTX) audit.Repository
	Blobs(db dbx.DBTX) blobs.Repository
}

// migrateUp is a seam for tests.
var migrateUp = migrations.Up

// New returns the manager for dialect d.
func New(d dbx.Dialect) (RepositoryManager, error) {
	switch d {
	case dbx.SQLite:
		return &SQLiteRepositoryManager{}, nil
	case dbx.Postgres:
		return &PostgresRepositoryManager{}, nil
	default:
		return nil, fmt.Errorf("no repository manager for dialect %q", d)
	}
}
