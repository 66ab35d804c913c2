// Package migrate applies embedded SQL migrations on startup.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/mailsub/mailsub/migrations"
)

const driverName = "postgres"

// Up runs all pending migrations from the embedded filesystem.
func Up(ctx context.Context, databaseURL string) error {
	return run(ctx, databaseURL, func(p *goose.Provider) error {
		_, err := p.Up(ctx)
		return err
	})
}

// Reset rolls back every migration and applies them again.
// Intended for integration tests that need a clean schema.
func Reset(ctx context.Context, databaseURL string) error {
	return run(ctx, databaseURL, func(p *goose.Provider) error {
		if _, err := p.DownTo(ctx, 0); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		_, err := p.Up(ctx)
		return err
	})
}

// Version reports the currently applied migration version.
func Version(ctx context.Context, databaseURL string) (int64, error) {
	var version int64
	err := run(ctx, databaseURL, func(p *goose.Provider) error {
		v, err := p.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		version = v
		return nil
	})
	return version, err
}

// NewProvider builds a goose provider over the embedded migrations. Providers
// hold no package-level goose state and may be used concurrently.
func NewProvider(db *sql.DB) (*goose.Provider, error) {
	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return p, nil
}

func run(ctx context.Context, databaseURL string, fn func(p *goose.Provider) error) error {
	db, err := sql.Open(driverName, databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	p, err := NewProvider(db)
	if err != nil {
		return err
	}

	if err := fn(p); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
