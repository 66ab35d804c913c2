package testutil

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mailsub/mailsub/internal/migrate"
	"github.com/mailsub/mailsub/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema rolls every migration back and applies them again.
func ResetSchema(ctx context.Context, databaseURL string) error {
	if err := migrate.Reset(ctx, databaseURL); err != nil {
		return fmt.Errorf("reset schema: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestSubscription creates a test subscription with sensible defaults.
func NewTestSubscription(t testing.TB, mailBase64 string) *model.Subscription {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Subscription{
		ID:           UniqueID("sub"),
		MailBase64:   mailBase64,
		Category:     "news",
		Subcategory:  "weekly",
		SubscribedAt: now,
	}
}

// NewTestToken creates a test token sent now with a unique value.
func NewTestToken(t testing.TB, mailBase64 string) *model.Token {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Token{
		ID:          UniqueID("tok"),
		MailBase64:  mailBase64,
		Value:       UniqueID("value"),
		Category:    "news",
		Subcategory: "weekly",
		SentAt:      &now,
	}
}

// NewTestTokenSentAt creates a test token with a specific send time.
func NewTestTokenSentAt(t testing.TB, mailBase64 string, sentAt time.Time) *model.Token {
	t.Helper()
	token := NewTestToken(t, mailBase64)
	sentAt = sentAt.UTC().Truncate(time.Microsecond)
	token.SentAt = &sentAt
	return token
}

var idSeq atomic.Uint64

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), idSeq.Add(1))
}
