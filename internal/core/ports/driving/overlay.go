package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

// OverlaySession applies date selections to a single active layer.
type OverlaySession interface {
	// SelectDate resolves date and, if it is still the latest selection,
	// replaces the active overlay. Results of superseded selections are
	// discarded and reported as domain.ErrSuperseded; after Close every
	// call returns domain.ErrSessionClosed.
	SelectDate(ctx context.Context, date time.Time) error

	// Reconfigure rebuilds the live overlay with new rendering settings.
	Reconfigure(wms domain.WMSSettings)

	// State returns a snapshot of the active layer.
	State() domain.ActiveLayerState

	// Close stops background refresh and discards in-flight results.
	Close()
}
