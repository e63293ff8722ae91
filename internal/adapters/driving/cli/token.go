package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var tokenShow bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Request an access token",
	Long: `Exchange the configured client credentials for an access token and
print it with its expiry. The value is masked unless --show is given.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenShow, "show", false, "print the full token value")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	tok, err := rt.tokens.GetToken(cmd.Context())
	if err != nil {
		return err
	}

	value := tok.Masked()
	if tokenShow {
		value = tok.Value
	}
	cmd.Printf("Token:   %s\n", value)
	cmd.Printf("Expires: %s (in %s)\n",
		tok.ExpiresAt.UTC().Format(time.RFC3339),
		tok.TimeUntilExpiry(now()).Round(time.Second))
	return nil
}
