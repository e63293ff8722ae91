package driven

import (
	"context"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

// ProductCache stores resolved products per day and query scope.
// A scope identifies the catalogue query, see domain.CatalogSettings.CacheScope.
type ProductCache interface {
	// Get returns the cached products. ok is false on a miss or expiry.
	Get(ctx context.Context, scope string, day domain.DateKey) (products []domain.Product, ok bool, err error)

	// Put stores products, replacing any earlier entry.
	Put(ctx context.Context, scope string, day domain.DateKey, products []domain.Product) error

	// Clear drops every entry.
	Clear(ctx context.Context) error
}
