// Package tui provides an interactive terminal user interface for tracegas.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"time"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Session holds the active overlay and applies date selections.
	Session driving.OverlaySession

	// Builder renders tile URLs for the overlay.
	Builder driving.LayerBuilder

	// Legend is the colour scale shown under the overlay.
	Legend domain.Legend

	// Title names the gas and product type in the header.
	Title string

	// InitialDay is selected on start. Zero means three days ago.
	InitialDay domain.DateKey

	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p.Session == nil {
		return ErrMissingSession
	}
	if p.Builder == nil {
		return ErrMissingBuilder
	}
	return nil
}
