package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the settings stored in the config file.

Settings not present in the file use their defaults. The gas preset picks the
product type, layer, style and colour range together; setting any of those
keys explicitly overrides the preset.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Validate and store a single setting. Durations use Go syntax ("30s",
"5m"); lists are comma separated.

Examples:
  tracegas settings set gas no2
  tracegas settings set wms.time_mode interval
  tracegas settings set refresh.interval 2m
  tracegas settings set cache.backend sqlite`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	s := a.settings

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("Config file: %s\n", a.store.Path())
	cmd.Printf("Gas:         %s\n", s.Gas)
	cmd.Println()

	cmd.Println("[Identity]")
	cmd.Printf("  Token URL:     %s\n", s.Identity.TokenURL)
	cmd.Printf("  Client ID:     %s\n", orNotSet(s.Identity.ClientID))
	if s.Identity.ClientSecret != "" {
		cmd.Printf("  Client secret: %s (in config file)\n", s.Identity.Credentials().MaskedSecret())
	}
	if len(s.Identity.Scopes) > 0 {
		cmd.Printf("  Scopes:        %s\n", strings.Join(s.Identity.Scopes, ","))
	}
	cmd.Println()

	cmd.Println("[Catalog]")
	cmd.Printf("  URL:          %s\n", s.Catalog.URL)
	cmd.Printf("  Collection:   %s\n", s.Catalog.Collection)
	cmd.Printf("  Product type: %s\n", s.Catalog.ProductType)
	cmd.Printf("  Max results:  %d\n", s.Catalog.MaxResults)
	cmd.Printf("  Rate limit:   %g req/s\n", s.Catalog.RequestsPerSecond)
	cmd.Println()

	cmd.Println("[WMS]")
	cmd.Printf("  URL:         %s\n", s.WMS.URL)
	cmd.Printf("  Layer:       %s\n", s.WMS.Layer)
	cmd.Printf("  Style:       %s\n", s.WMS.Style)
	cmd.Printf("  Color range: %s\n", s.WMS.ColorRange)
	cmd.Printf("  Time mode:   %s\n", s.WMS.TimeMode)
	cmd.Printf("  CRS:         %s\n", s.WMS.CRS)
	cmd.Printf("  Format:      %s (version %s)\n", s.WMS.Format, s.WMS.Version)
	cmd.Printf("  Size:        %dx%d\n", s.WMS.Width, s.WMS.Height)
	cmd.Printf("  Opacity:     %g\n", s.WMS.Opacity)
	cmd.Println()

	cmd.Println("[Refresh]")
	cmd.Printf("  Interval:        %s\n", s.Refresh.Interval)
	cmd.Printf("  Token buffer:    %s\n", s.Refresh.TokenBuffer)
	cmd.Printf("  Request timeout: %s\n", s.Refresh.RequestTimeout)
	cmd.Printf("  Retry backoff:   %s\n", s.Refresh.RetryBackoff)
	cmd.Println()

	cmd.Println("[Cache]")
	cmd.Printf("  Backend: %s\n", s.Cache.Backend)
	if s.Cache.Backend != domain.CacheNone {
		cmd.Printf("  TTL:     %s\n", s.Cache.TTL)
	}
	if s.Cache.Backend == domain.CacheMemory {
		cmd.Printf("  Size:    %d\n", s.Cache.Size)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	key, value := args[0], args[1]
	if err := a.settingsService.Set(key, value); err != nil {
		return err
	}
	if services.IsSecret(key) {
		value = domain.NewCredentials("", value, nil).MaskedSecret()
	}
	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	for _, k := range a.settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
