package mcp

import (
	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Resolver looks up products for a day.
	Resolver driving.ProductResolver

	// Builder renders tile URLs for overlay parameters.
	Builder driving.LayerBuilder

	// Session holds the active overlay. Optional; without it only
	// list_products is useful.
	Session driving.OverlaySession

	// Legend describes the colour scale of the configured gas.
	Legend domain.Legend
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Resolver == nil {
		return ErrMissingResolver
	}
	if p.Builder == nil {
		return ErrMissingBuilder
	}
	return nil
}
