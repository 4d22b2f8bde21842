// Package localdb opens the client's SQLite database, applies embedded
// migrations and wires up the repositories.
package localdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/taskvault/taskvault/internal/client/migrations"
	"github.com/taskvault/taskvault/internal/client/repositories/records"
	"github.com/taskvault/taskvault/internal/client/repositories/syncstate"

	_ "modernc.org/sqlite"
)

// Repositories bundles the repositories backed by one database handle.
// The handle itself is exposed for transactional flows (dbx.WithTx).
type Repositories struct {
	Records   records.Repository
	SyncState syncstate.Repository
	DB        *sql.DB
}

// RunMigrations applies all embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the database at dsn, migrates it
// and returns wired repositories.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Records:   records.NewSQLiteRepository(db),
		SyncState: syncstate.NewSQLiteRepository(db),
		DB:        db,
	}, nil
}
