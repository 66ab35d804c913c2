//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailsub/mailsub/internal/mail"
	"github.com/mailsub/mailsub/internal/testutil"
)

// ============================================================================
// Subscription Repository Integration Tests
// ============================================================================

func TestIntegrationSubscription_CreateAndFind(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	key := mail.Normalize("john@example.com")
	sub := testutil.NewTestSubscription(t, key)

	if err := repo.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("CreateSubscription failed: %v", err)
	}

	found, err := repo.FindSubscriptions(ctx, key, sub.Category, sub.Subcategory)
	if err != nil {
		t.Fatalf("FindSubscriptions failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(found))
	}
	if found[0].ID != sub.ID {
		t.Errorf("ID mismatch: got %q, want %q", found[0].ID, sub.ID)
	}
	if !found[0].SubscribedAt.Equal(sub.SubscribedAt) {
		t.Errorf("SubscribedAt mismatch: got %v, want %v", found[0].SubscribedAt, sub.SubscribedAt)
	}

	other, err := repo.FindSubscriptions(ctx, key, sub.Category, "daily")
	if err != nil {
		t.Fatalf("FindSubscriptions failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no match for another subcategory, got %d", len(other))
	}
}

func TestIntegrationSubscription_ListByCategory(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	a := testutil.NewTestSubscription(t, mail.Normalize("a@example.com"))
	b := testutil.NewTestSubscription(t, mail.Normalize("b@example.com"))
	c := testutil.NewTestSubscription(t, mail.Normalize("c@example.com"))
	c.Category = "alerts"

	if err := repo.CreateSubscription(ctx, a); err != nil {
		t.Fatalf("CreateSubscription failed: %v", err)
	}
	if err := repo.CreateSubscription(ctx, b); err != nil {
		t.Fatalf("CreateSubscription failed: %v", err)
	}
	if err := repo.CreateSubscription(ctx, c); err != nil {
		t.Fatalf("CreateSubscription failed: %v", err)
	}

	all, err := repo.ListSubscriptions(ctx)
	if err != nil {
		t.Fatalf("ListSubscriptions failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 subscriptions, got %d", len(all))
	}

	news, err := repo.ListSubscriptionsByCategory(ctx, "news", "weekly")
	if err != nil {
		t.Fatalf("ListSubscriptionsByCategory failed: %v", err)
	}
	if len(news) != 2 {
		t.Errorf("expected 2 news subscriptions, got %d", len(news))
	}
}

func TestIntegrationSubscription_Delete(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	sub := testutil.NewTestSubscription(t, mail.Normalize("john@example.com"))
	if err := repo.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("CreateSubscription failed: %v", err)
	}

	deleted, err := repo.DeleteSubscription(ctx, sub.ID)
	if err != nil {
		t.Fatalf("DeleteSubscription failed: %v", err)
	}
	if !deleted {
		t.Error("expected deleted to be true")
	}

	deleted, err = repo.DeleteSubscription(ctx, sub.ID)
	if err != nil {
		t.Fatalf("DeleteSubscription (second) failed: %v", err)
	}
	if deleted {
		t.Error("second delete should report nothing removed")
	}
}

// ============================================================================
// Token Repository Integration Tests
// ============================================================================

func TestIntegrationToken_DuplicateValue(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	key := mail.Normalize("john@example.com")
	first := testutil.NewTestToken(t, key)
	second := testutil.NewTestToken(t, key)
	second.Value = first.Value

	if err := repo.CreateToken(ctx, first); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	err := repo.CreateToken(ctx, second)
	if !errors.Is(err, ErrTokenExists) {
		t.Errorf("expected ErrTokenExists, got: %v", err)
	}
}

func TestIntegrationToken_LatestOrdering(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	key := mail.Normalize("john@example.com")
	now := time.Now().UTC()

	older := testutil.NewTestTokenSentAt(t, key, now.Add(-2*time.Hour))
	newer := testutil.NewTestTokenSentAt(t, key, now.Add(-time.Hour))
	unsent := testutil.NewTestToken(t, key)
	unsent.SentAt = nil

	if err := repo.CreateToken(ctx, older); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if err := repo.CreateToken(ctx, unsent); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if err := repo.CreateToken(ctx, newer); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	latest, err := repo.LatestToken(ctx, key, "news", "weekly")
	if err != nil {
		t.Fatalf("LatestToken failed: %v", err)
	}
	if latest.ID != newer.ID {
		t.Errorf("LatestToken returned %q, want %q", latest.ID, newer.ID)
	}

	all, err := repo.FindTokens(ctx, key, "news", "weekly")
	if err != nil {
		t.Fatalf("FindTokens failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 tokens, got %d", len(all))
	}

	_, err = repo.LatestToken(ctx, key, "news", "daily")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound, got: %v", err)
	}
}

func TestIntegrationToken_RotateAndLookup(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	tok := testutil.NewTestTokenSentAt(t, mail.Normalize("john@example.com"), time.Now().Add(-72*time.Hour))
	if err := repo.CreateToken(ctx, tok); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	sentAt := time.Now().UTC().Truncate(time.Microsecond)
	newValue := testutil.UniqueID("rotated")
	if err := repo.RotateToken(ctx, tok.ID, newValue, sentAt); err != nil {
		t.Fatalf("RotateToken failed: %v", err)
	}

	if _, err := repo.GetTokenByValue(ctx, tok.Value); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("old value should be gone, got: %v", err)
	}

	got, err := repo.GetTokenByValue(ctx, newValue)
	if err != nil {
		t.Fatalf("GetTokenByValue failed: %v", err)
	}
	if got.ID != tok.ID {
		t.Errorf("ID mismatch: got %q, want %q", got.ID, tok.ID)
	}
	if got.SentAt == nil || !got.SentAt.Equal(sentAt) {
		t.Errorf("SentAt = %v, want %v", got.SentAt, sentAt)
	}

	err = repo.RotateToken(ctx, "missing", testutil.UniqueID("rotated"), sentAt)
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound for missing row, got: %v", err)
	}
}

func TestIntegrationToken_DeleteByValue(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	tok := testutil.NewTestToken(t, mail.Normalize("john@example.com"))
	if err := repo.CreateToken(ctx, tok); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	n, err := repo.DeleteTokenByValue(ctx, tok.Value)
	if err != nil {
		t.Fatalf("DeleteTokenByValue failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row deleted, got %d", n)
	}

	n, err = repo.DeleteTokenByValue(ctx, tok.Value)
	if err != nil {
		t.Fatalf("DeleteTokenByValue (second) failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 rows deleted, got %d", n)
	}

	list, err := repo.ListTokensByCategory(ctx, "news", "weekly")
	if err != nil {
		t.Fatalf("ListTokensByCategory failed: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty non-nil list, got %v", list)
	}
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newRepoTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	ctx, dbURL := lockTestDB(t)

	if err := testutil.ResetSchema(ctx, dbURL); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	repo, err := New(ctx, dbURL, PoolOptions{})
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	return ctx, repo
}

// lockTestDB serializes database tests across packages and returns the URL.
func lockTestDB(t *testing.T) (context.Context, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	return ctx, dbURL
}
