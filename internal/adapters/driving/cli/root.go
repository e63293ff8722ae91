// Package cli provides the tracegas command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tracegas-cli/internal/logger"
)

// version is set at build time through SetVersion.
var version = "dev"

var (
	verbose          bool
	configDir        string
	flagClientID     string
	flagClientSecret string
	flagGas          string
)

var rootCmd = &cobra.Command{
	Use:   "tracegas",
	Short: "Sentinel-5P trace-gas overlays from the Copernicus Data Space",
	Long: `tracegas resolves Sentinel-5P products for a calendar day and builds
authorised WMS overlay parameters for them.

Credentials are an OAuth2 client id and secret registered with the
Copernicus Data Space identity service. Store them once with
'tracegas auth login', or pass them through TRACEGAS_CLIENT_ID and
TRACEGAS_CLIENT_SECRET.

Dates are YYYY-MM-DD, 'today', 'yesterday' or '-Nd' (N days ago). Without a
date, three days ago is used.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "print debug output to stderr")
	flags.StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.tracegas)")
	flags.StringVar(&flagClientID, "client-id", "", "OAuth2 client id (overrides config and environment)")
	flags.StringVar(&flagClientSecret, "client-secret", "", "OAuth2 client secret (overrides keyring and environment)")
	flags.StringVar(&flagGas, "gas", "", "trace gas preset: co or no2")
}

// SetVersion sets the version reported by 'tracegas version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
