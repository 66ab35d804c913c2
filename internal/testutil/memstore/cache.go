package memstore

import (
	"context"
	"sync"

	"github.com/mailsub/mailsub/internal/cache"
	"github.com/mailsub/mailsub/internal/model"
)

// Cache is an in-memory stand-in for the Redis token cache.
type Cache struct {
	mu       sync.Mutex
	tokens   map[string]model.Token
	negative map[string]bool
	err      error
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		tokens:   make(map[string]model.Token),
		negative: make(map[string]bool),
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (c *Cache) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Has reports whether a positive entry exists for value.
func (c *Cache) Has(value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tokens[value]
	return ok
}

// GetToken returns the cached token or cache.ErrCacheMiss.
func (c *Cache) GetToken(ctx context.Context, value string) (*model.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	t, ok := c.tokens[value]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	t = copyToken(t)
	return &t, nil
}

// FillToken caches token unless value is negatively cached.
func (c *Cache) FillToken(ctx context.Context, token *model.Token) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if c.negative[token.Value] {
		return false, nil
	}
	c.tokens[token.Value] = copyToken(*token)
	return true, nil
}

// InvalidateToken drops the positive entry and marks value as absent.
func (c *Cache) InvalidateToken(ctx context.Context, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	delete(c.tokens, value)
	c.negative[value] = true
	return nil
}

// IsNegativelyCached reports whether value is known to be absent.
func (c *Cache) IsNegativelyCached(ctx context.Context, value string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	return c.negative[value], nil
}

// SetNegativeCache records value as absent.
func (c *Cache) SetNegativeCache(ctx context.Context, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.negative[value] = true
	return nil
}
