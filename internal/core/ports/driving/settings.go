package driving

import "github.com/custodia-labs/tracegas-cli/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings with defaults applied.
	Get() (domain.Settings, error)

	// Set validates and persists a single dotted key.
	Set(key, value string) error

	// Keys lists the settable keys in display order.
	Keys() []string
}
