package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mailsub/mailsub/internal/model"
)

// Cache key prefixes and TTLs.
const (
	tokenKeyPrefix    = "token:"
	negCacheKeySuffix = ":neg"

	// DefaultTokenTTL is the TTL for cached token rows.
	DefaultTokenTTL = time.Hour

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

func tokenKey(value string) string {
	return tokenKeyPrefix + value
}

func negTokenKey(value string) string {
	return tokenKeyPrefix + value + negCacheKeySuffix
}

// GetToken retrieves a token row from cache by its value.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetToken(ctx context.Context, value string) (*model.Token, error) {
	var cached model.CachedToken
	cmd := c.client.HGetAll(ctx, tokenKey(value))
	if err := cmd.Err(); err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(cmd.Val()) == 0 {
		return nil, ErrCacheMiss
	}

	if err := cmd.Scan(&cached); err != nil {
		return nil, fmt.Errorf("failed to decode cached token: %w", err)
	}

	return cached.ToToken(value), nil
}

// FillToken caches a row read from the database. It writes nothing and
// reports false when value carries a negative entry, so a row read just
// before a delete or rotation cannot be cached after its invalidation.
func (c *Cache) FillToken(ctx context.Context, token *model.Token) (bool, error) {
	key := tokenKey(token.Value)
	negKey := negTokenKey(token.Value)
	cached := token.ToCachedToken()

	fields := map[string]any{
		"id":          cached.ID,
		"mail_base64": cached.MailBase64,
		"category":    cached.Category,
		"subcategory": cached.Subcategory,
	}

	// Only set optional fields if they have values
	if cached.SentAt != "" {
		fields["sent_at"] = cached.SentAt
	}

	filled := false
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, negKey).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			pipe.Expire(ctx, key, c.tokenTTL)
			return nil
		})
		if err == nil {
			filled = true
		}
		return err
	}, negKey)

	// The negative key changed while watched: an invalidation won.
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to cache token: %w", err)
	}

	return filled, nil
}

// InvalidateToken drops the cached row for value and leaves a negative
// entry behind, which also blocks any in-flight FillToken for value.
func (c *Cache) InvalidateToken(ctx context.Context, value string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, tokenKey(value))
	pipe.SetEx(ctx, negTokenKey(value), "", NegativeCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate cached token: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a token value is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, value string) (bool, error) {
	exists, err := c.client.Exists(ctx, negTokenKey(value)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a token value as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, value string) error {
	if err := c.client.SetEx(ctx, negTokenKey(value), "", NegativeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}
