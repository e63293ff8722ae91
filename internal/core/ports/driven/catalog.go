package driven

import (
	"context"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

// Catalog searches a product catalogue.
type Catalog interface {
	// Search runs one bounded query authorised by accessToken.
	// Records that cannot be decoded are dropped; failures are *domain.CatalogError.
	Search(ctx context.Context, accessToken string, query domain.CatalogQuery) ([]domain.CatalogEntry, error)
}
