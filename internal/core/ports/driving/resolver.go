package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

// ProductResolver turns a calendar day into the products acquired on it.
type ProductResolver interface {
	// FetchForDate resolves the UTC day containing date, newest first.
	// An empty result is not an error.
	FetchForDate(ctx context.Context, date time.Time) ([]domain.Product, error)

	// FetchForDay resolves an already normalised day.
	FetchForDay(ctx context.Context, day domain.DateKey) ([]domain.Product, error)
}

// LayerBuilder turns a product and token into WMS parameters.
type LayerBuilder interface {
	// Build returns overlay parameters for p authorised by tok.
	Build(p domain.Product, tok domain.Token) domain.WMSParams

	// TileURL returns a tile template for web map clients.
	TileURL(params domain.WMSParams) string

	// GetMapURL returns a single-image request covering bbox.
	GetMapURL(params domain.WMSParams, bbox domain.BBox, width, height int) string
}
