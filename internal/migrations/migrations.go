// Package migrations embeds the goose schema migrations for every
// supported dialect and applies them.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/fileguard/internal/dbx"
	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var all embed.FS

// FS returns the migration files for dialect d.
func FS(d dbx.Dialect) fs.FS {
	dir := "sqlite"
	if d == dbx.Postgres {
		dir = "postgres"
	}
	sub, err := fs.Sub(all, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

func gooseDialect(d dbx.Dialect) goose.Dialect {
	if d == dbx.Postgres {
		return goose.DialectPostgres
	}
	return goose.DialectSQLite3
}

// Up applies every pending migration for dialect d. It is safe to call on
// an already migrated database.
func Up(ctx context.Context, db *sql.DB, d dbx.Dialect) error {
	p, err := goose.NewProvider(gooseDialect(d), db, FS(d))
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
