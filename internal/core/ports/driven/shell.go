package driven

import "github.com/custodia-labs/tracegas-cli/internal/core/domain"

// Shell receives overlay updates from a session. A map view, a terminal
// UI, or a CLI printer can implement it. Calls arrive from session
// goroutines and must not block for long.
type Shell interface {
	// OnProductResolved is called when a date selection produced an overlay.
	OnProductResolved(overlay domain.Overlay)

	// OnNoProducts is called when the catalogue had nothing for the day.
	OnNoProducts(day domain.DateKey)

	// OnResolutionFailed is called when a date selection failed.
	OnResolutionFailed(kind domain.ErrorKind, message string)

	// OnTokenRefreshed is called after the live overlay's token was replaced.
	OnTokenRefreshed(token domain.Token)
}
