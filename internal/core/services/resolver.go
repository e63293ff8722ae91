package services

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driving"
	"github.com/custodia-labs/tracegas-cli/internal/logger"
)

// Ensure ProductResolver implements the interface.
var _ driving.ProductResolver = (*ProductResolver)(nil)

// ProductResolver queries the catalogue for the products acquired on a day.
type ProductResolver struct {
	tokens      driven.TokenProvider
	catalog     driven.Catalog
	cache       driven.ProductCache
	metrics     driven.Metrics
	collection  string
	productType string
	scope       string
	top         int
	now         func() time.Time
}

// ResolverOption configures a ProductResolver.
type ResolverOption func(*ProductResolver)

// WithProductCache enables caching of non-empty results.
func WithProductCache(c driven.ProductCache) ResolverOption {
	return func(r *ProductResolver) { r.cache = c }
}

// WithResolverMetrics records query outcomes.
func WithResolverMetrics(m driven.Metrics) ResolverOption {
	return func(r *ProductResolver) { r.metrics = m }
}

// WithResolverClock replaces time.Now, for tests.
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *ProductResolver) { r.now = now }
}

// NewProductResolver creates a resolver for the configured collection and product type.
// MaxResults is clamped to [1, domain.MaxCatalogResults].
func NewProductResolver(
	tokens driven.TokenProvider,
	catalog driven.Catalog,
	cfg domain.CatalogSettings,
	opts ...ResolverOption,
) *ProductResolver {
	top := cfg.MaxResults
	if top <= 0 {
		top = 5
	}
	if top > domain.MaxCatalogResults {
		top = domain.MaxCatalogResults
	}

	r := &ProductResolver{
		tokens:      tokens,
		catalog:     catalog,
		metrics:     NopMetrics{},
		collection:  cfg.Collection,
		productType: cfg.ProductType,
		scope:       cfg.CacheScope(),
		top:         top,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ProductType returns the configured product type.
func (r *ProductResolver) ProductType() string {
	return r.productType
}

// FetchForDate resolves the UTC day containing date, newest first.
// A zero date fails with *domain.InvalidArgumentError before any network call.
func (r *ProductResolver) FetchForDate(ctx context.Context, date time.Time) ([]domain.Product, error) {
	day, err := domain.NewDateKey(date)
	if err != nil {
		return nil, err
	}
	return r.FetchForDay(ctx, day)
}

// FetchForDay resolves an already normalised day.
//
// Token failures are returned unchanged. Catalogue failures are
// *domain.CatalogError. Records missing an id, start or end are skipped.
func (r *ProductResolver) FetchForDay(ctx context.Context, day domain.DateKey) ([]domain.Product, error) {
	if day.IsZero() {
		return nil, &domain.InvalidArgumentError{Arg: "date", Reason: "zero or unset day"}
	}

	if products, ok := r.fromCache(ctx, day); ok {
		r.metrics.CatalogQuery(driven.OutcomeCached, len(products), 0)
		return products, nil
	}

	tok, err := r.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	query := domain.CatalogQuery{
		Collection:  r.collection,
		ProductType: r.productType,
		Window:      day,
		Top:         r.top,
	}

	logger.Debug("catalogue query %s %s [%s, %s] top=%d",
		query.Collection, query.ProductType, day.StartString(), day.EndString(), query.Top)

	start := r.now()
	entries, err := r.catalog.Search(ctx, tok.Value, query)
	if r.rejected(err) {
		// Revoked before expiry; exchange again and retry once.
		logger.Warn("catalogue rejected the access token, requesting a new one")
		if tok, err = r.tokens.GetToken(ctx); err != nil {
			return nil, err
		}
		entries, err = r.catalog.Search(ctx, tok.Value, query)
	}
	elapsed := r.now().Sub(start)
	if err != nil {
		r.metrics.CatalogQuery(driven.OutcomeFailure, 0, elapsed)
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		var catErr *domain.CatalogError
		if !errors.As(err, &catErr) {
			err = &domain.CatalogError{Err: err}
		}
		return nil, err
	}

	products := mapEntries(entries)
	if skipped := len(entries) - len(products); skipped > 0 {
		r.metrics.SkippedRecords(skipped)
	}
	sortNewestFirst(products)
	if len(products) > r.top {
		products = products[:r.top]
	}

	if len(products) == 0 {
		r.metrics.CatalogQuery(driven.OutcomeEmpty, 0, elapsed)
		return []domain.Product{}, nil
	}
	r.metrics.CatalogQuery(driven.OutcomeSuccess, len(products), elapsed)

	if r.cache != nil {
		if err := r.cache.Put(ctx, r.scope, day, products); err != nil {
			logger.Warn("product cache write failed for %s: %v", day, err)
		}
	}
	return products, nil
}

// rejected reports whether err is a 401 from the catalogue and, if so, drops
// the cached token. Providers that cannot invalidate are never retried.
func (r *ProductResolver) rejected(err error) bool {
	var catErr *domain.CatalogError
	if !errors.As(err, &catErr) || catErr.Status != http.StatusUnauthorized {
		return false
	}
	inv, ok := r.tokens.(driven.TokenInvalidator)
	if !ok {
		return false
	}
	inv.Invalidate()
	return true
}

// fromCache reads the cache; cache failures are logged and treated as a miss.
// Hits are cut to the current result limit, which may be lower than the one
// the entry was written under.
func (r *ProductResolver) fromCache(ctx context.Context, day domain.DateKey) ([]domain.Product, bool) {
	if r.cache == nil {
		return nil, false
	}
	products, ok, err := r.cache.Get(ctx, r.scope, day)
	if err != nil {
		logger.Warn("product cache read failed for %s: %v", day, err)
		return nil, false
	}
	if !ok || len(products) == 0 {
		return nil, false
	}
	logger.Debug("product cache hit for %s (%d products)", day, len(products))
	if len(products) > r.top {
		products = products[:r.top]
	}
	return products, true
}

// mapEntries converts catalogue entries into products, skipping unusable ones.
func mapEntries(entries []domain.CatalogEntry) []domain.Product {
	products := make([]domain.Product, 0, len(entries))
	for i := range entries {
		p, reason := toProduct(entries[i])
		if reason != "" {
			logger.Debug("skipping catalogue record %q: %s", entries[i].ID, reason)
			continue
		}
		products = append(products, p)
	}
	return products
}

// toProduct validates one entry. A non-empty reason means it was rejected.
func toProduct(e domain.CatalogEntry) (domain.Product, string) {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		return domain.Product{}, "missing id"
	}
	if strings.TrimSpace(e.Start) == "" {
		return domain.Product{}, "missing acquisition start"
	}
	if strings.TrimSpace(e.End) == "" {
		return domain.Product{}, "missing acquisition end"
	}
	start, err := parseInstant(e.Start)
	if err != nil {
		return domain.Product{}, "bad acquisition start: " + err.Error()
	}
	end, err := parseInstant(e.End)
	if err != nil {
		return domain.Product{}, "bad acquisition end: " + err.Error()
	}
	if end.Before(start) {
		return domain.Product{}, "acquisition ends before it starts"
	}
	return domain.Product{
		ID:               id,
		DisplayName:      strings.TrimSpace(e.Name),
		AcquisitionStart: start,
		AcquisitionEnd:   end,
		Footprint:        e.Footprint,
	}, ""
}

// instantLayouts are tried in order. Zone-less forms are read as UTC.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range instantLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// sortNewestFirst orders by acquisition start descending, ties by id.
func sortNewestFirst(products []domain.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if !a.AcquisitionStart.Equal(b.AcquisitionStart) {
			return a.AcquisitionStart.After(b.AcquisitionStart)
		}
		return a.ID < b.ID
	})
}
