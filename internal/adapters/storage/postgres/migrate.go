package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"pura-pata-api/internal/platform/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations expone las migraciones embebidas (tests de integración).
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrate aplica las migraciones pendientes con goose.
func Migrate(ctx context.Context, db *sql.DB, log logger.Logger) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, Migrations())
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	for _, r := range results {
		if log == nil || r.Source == nil {
			continue
		}
		log.Info("migration applied", map[string]any{
			"version":     r.Source.Version,
			"duration_ms": r.Duration.Milliseconds(),
		})
	}
	return nil
}
