//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mailsub/mailsub/internal/model"
	"github.com/mailsub/mailsub/internal/testutil"
)

func newTestCache(t *testing.T) (context.Context, *Cache) {
	t.Helper()
	ctx := context.Background()

	redisURL := testutil.RequireEnv(t, "REDIS_URL")
	c, err := New(ctx, redisURL, time.Minute)
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return ctx, c
}

func TestIntegrationCache_TokenRoundTrip(t *testing.T) {
	ctx, c := newTestCache(t)

	token := testutil.NewTestToken(t, "am9obkBleGFtcGxlLmNvbQ==")

	if _, err := c.GetToken(ctx, token.Value); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	filled, err := c.FillToken(ctx, token)
	if err != nil || !filled {
		t.Fatalf("FillToken = %v, %v", filled, err)
	}

	got, err := c.GetToken(ctx, token.Value)
	if err != nil {
		t.Fatalf("GetToken failed: %v", err)
	}
	if got.ID != token.ID || got.MailBase64 != token.MailBase64 {
		t.Errorf("cached token mismatch: %+v", got)
	}
	if got.SentAt == nil || !got.SentAt.Equal(*token.SentAt) {
		t.Errorf("SentAt mismatch: %v vs %v", got.SentAt, token.SentAt)
	}

	if err := c.InvalidateToken(ctx, token.Value); err != nil {
		t.Fatalf("InvalidateToken failed: %v", err)
	}
	if _, err := c.GetToken(ctx, token.Value); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss after invalidation, got %v", err)
	}
	if neg, _ := c.IsNegativelyCached(ctx, token.Value); !neg {
		t.Fatal("invalidation should leave a negative entry")
	}

	// A fill racing behind the invalidation must not bring the row back.
	filled, err = c.FillToken(ctx, token)
	if err != nil || filled {
		t.Fatalf("FillToken after invalidation = %v, %v", filled, err)
	}
	if _, err := c.GetToken(ctx, token.Value); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss after blocked fill, got %v", err)
	}
}

func TestIntegrationCache_NegativeEntry(t *testing.T) {
	ctx, c := newTestCache(t)

	value := testutil.UniqueID("missing")

	neg, err := c.IsNegativelyCached(ctx, value)
	if err != nil || neg {
		t.Fatalf("expected no negative entry, got %v (err %v)", neg, err)
	}

	if err := c.SetNegativeCache(ctx, value); err != nil {
		t.Fatalf("SetNegativeCache failed: %v", err)
	}
	if neg, _ := c.IsNegativelyCached(ctx, value); !neg {
		t.Fatal("expected negative entry")
	}

	token := &model.Token{ID: "t1", Value: value, MailBase64: "bWFpbA==", Category: "c", Subcategory: "s"}
	filled, err := c.FillToken(ctx, token)
	if err != nil {
		t.Fatalf("FillToken failed: %v", err)
	}
	if filled {
		t.Fatal("FillToken should skip a negatively cached value")
	}
	if _, err := c.GetToken(ctx, value); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}
