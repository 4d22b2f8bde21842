// Package serverdb opens the server's PostgreSQL database, applies
// embedded migrations and wires up the repositories.
package serverdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/taskvault/taskvault/internal/server/migrations"
	"github.com/taskvault/taskvault/internal/server/repositories/records"
	"github.com/taskvault/taskvault/internal/server/repositories/users"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Repositories bundles the repositories backed by one database handle.
type Repositories struct {
	Records records.Repository
	Users   users.Repository
	DB      *sql.DB
}

// RunMigrations applies all embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase connects to the database at dsn, migrates it and returns
// wired repositories.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Records: records.NewPostgresRepository(db),
		Users:   users.NewPostgresRepository(db),
		DB:      db,
	}, nil
}

// InitInMemory wires the in-memory repositories, for development and
// tests. No DB handle is involved.
func InitInMemory() *Repositories {
	return &Repositories{
		Records: records.NewInMemoryRepository(),
		Users:   users.NewInMemoryRepository(),
	}
}
