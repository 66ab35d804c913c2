package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/mailsub/mailsub/internal/model"
)

// LocalCache is an in-process token cache for single-instance deployments
// without Redis. Entries are not shared between instances, so a delete on one
// instance can be served stale by another until the TTL expires.
type LocalCache struct {
	// mu orders fills against invalidations; go-cache only locks single calls.
	mu    sync.Mutex
	items *gocache.Cache
	ttl   time.Duration
}

// NewLocal creates an in-process token cache.
func NewLocal(tokenTTL time.Duration) *LocalCache {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &LocalCache{
		items: gocache.New(tokenTTL, tokenTTL*2),
		ttl:   tokenTTL,
	}
}

// GetToken returns a copy of the cached row or ErrCacheMiss.
func (c *LocalCache) GetToken(_ context.Context, value string) (*model.Token, error) {
	item, found := c.items.Get(tokenKey(value))
	if !found {
		return nil, ErrCacheMiss
	}
	token, ok := item.(model.Token)
	if !ok {
		return nil, ErrCacheMiss
	}
	return &token, nil
}

// FillToken stores a copy of token unless value carries a negative entry.
func (c *LocalCache) FillToken(_ context.Context, token *model.Token) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, negative := c.items.Get(negTokenKey(token.Value)); negative {
		return false, nil
	}
	c.items.Set(tokenKey(token.Value), *token, c.ttl)
	return true, nil
}

// InvalidateToken drops the cached row for value and leaves a negative entry.
func (c *LocalCache) InvalidateToken(_ context.Context, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items.Delete(tokenKey(value))
	c.items.Set(negTokenKey(value), struct{}{}, NegativeCacheTTL)
	return nil
}

// IsNegativelyCached checks if a token value is in negative cache.
func (c *LocalCache) IsNegativelyCached(_ context.Context, value string) (bool, error) {
	_, found := c.items.Get(negTokenKey(value))
	return found, nil
}

// SetNegativeCache marks a token value as not found.
func (c *LocalCache) SetNegativeCache(_ context.Context, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items.Set(negTokenKey(value), struct{}{}, NegativeCacheTTL)
	return nil
}

// Ping always succeeds; the cache lives in process.
func (c *LocalCache) Ping(context.Context) error {
	return nil
}

// Len reports the number of live entries, negative entries included.
func (c *LocalCache) Len() int {
	return c.items.ItemCount()
}
