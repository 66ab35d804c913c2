//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailsub/mailsub/internal/migrate"
	"github.com/mailsub/mailsub/internal/testutil"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_ApplyAllTables(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	for _, table := range []string{"subscriptions", "tokens", "goose_db_version"} {
		t.Run(table, func(t *testing.T) {
			exists, err := tableExists(ctx, pool, table)
			if err != nil {
				t.Fatalf("tableExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Table %q should exist after migrations", table)
			}
		})
	}
}

func TestIntegrationMigration_TableSchemas(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	expected := map[string][]string{
		"subscriptions": {"id", "mail_base64", "category", "subcategory", "subscribed_at"},
		"tokens":        {"id", "mail_base64", "token", "category", "subcategory", "sent_at"},
	}

	for table, columns := range expected {
		for _, col := range columns {
			exists, err := columnExists(ctx, pool, table, col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %s.%s should exist", table, col)
			}
		}
	}
}

func TestIntegrationMigration_TokenValueUnique(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	insert := `INSERT INTO tokens (id, mail_base64, token, category, subcategory) VALUES ($1, 'bWFpbA==', 'dup-value', 'news', 'weekly')`
	if _, err := pool.Exec(ctx, insert, "tok-a"); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	_, err := pool.Exec(ctx, insert, "tok-b")
	if !isUniqueViolation(err) {
		t.Errorf("expected unique violation, got: %v", err)
	}
}

func TestIntegrationMigration_UpIsIdempotent(t *testing.T) {
	ctx, _ := newMigrationTestEnv(t)

	dbURL := testutil.RequireEnv(t, "DATABASE_URL")
	if err := migrate.Up(ctx, dbURL); err != nil {
		t.Fatalf("second Up failed: %v", err)
	}
}

// ============================================================================
// Helpers
// ============================================================================

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newMigrationTestEnv(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	ctx, dbURL := lockTestDB(t)

	if err := testutil.ResetSchema(ctx, dbURL); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	return ctx, pool
}
