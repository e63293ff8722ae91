package driven

import "time"

// Outcome labels for recorded operations.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeShared  = "shared"
	OutcomeCached  = "cached"
	OutcomeEmpty   = "empty"
	OutcomeStale   = "stale"
)

// Metrics records operation outcomes.
type Metrics interface {
	// TokenExchange records one exchange attempt or a shared wait.
	TokenExchange(outcome string, d time.Duration)

	// CatalogQuery records one catalogue query and the number of usable products.
	CatalogQuery(outcome string, products int, d time.Duration)

	// Resolution records how a date selection ended.
	Resolution(outcome string)

	// SkippedRecords counts catalogue records dropped during mapping.
	SkippedRecords(n int)
}
