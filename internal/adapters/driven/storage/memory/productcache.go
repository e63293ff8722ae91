// Package memory provides in-memory implementations of driven port interfaces.
package memory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
)

// Ensure ProductCache implements the interface.
var _ driven.ProductCache = (*ProductCache)(nil)

// ProductCache keeps recent catalogue results in a size-bounded LRU whose
// entries expire after a TTL.
type ProductCache struct {
	lru *expirable.LRU[string, []domain.Product]
}

// NewProductCache creates a cache holding at most size days of results.
// A non-positive ttl keeps entries until they are evicted.
func NewProductCache(size int, ttl time.Duration) *ProductCache {
	if size <= 0 {
		size = 64
	}
	if ttl < 0 {
		ttl = 0
	}
	return &ProductCache{lru: expirable.NewLRU[string, []domain.Product](size, nil, ttl)}
}

func cacheKey(scope string, day domain.DateKey) string {
	return scope + "/" + day.String()
}

// Get returns a copy of the cached products.
func (c *ProductCache) Get(_ context.Context, scope string, day domain.DateKey) ([]domain.Product, bool, error) {
	products, ok := c.lru.Get(cacheKey(scope, day))
	if !ok {
		return nil, false, nil
	}
	return append([]domain.Product(nil), products...), true, nil
}

// Put stores a copy of products.
func (c *ProductCache) Put(_ context.Context, scope string, day domain.DateKey, products []domain.Product) error {
	c.lru.Add(cacheKey(scope, day), append([]domain.Product(nil), products...))
	return nil
}

// Clear removes every entry.
func (c *ProductCache) Clear(_ context.Context) error {
	c.lru.Purge()
	return nil
}

// Len returns the number of cached days.
func (c *ProductCache) Len() int {
	return c.lru.Len()
}
