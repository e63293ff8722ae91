package services

import (
	"time"

	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
)

// Ensure NopMetrics implements the interface.
var _ driven.Metrics = NopMetrics{}

// NopMetrics discards all measurements.
type NopMetrics struct{}

// TokenExchange implements driven.Metrics.
func (NopMetrics) TokenExchange(string, time.Duration) {}

// CatalogQuery implements driven.Metrics.
func (NopMetrics) CatalogQuery(string, int, time.Duration) {}

// Resolution implements driven.Metrics.
func (NopMetrics) Resolution(string) {}

// SkippedRecords implements driven.Metrics.
func (NopMetrics) SkippedRecords(int) {}
