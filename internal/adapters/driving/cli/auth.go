package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/tracegas-cli/internal/adapters/driven/oauth"
	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

const keyClientID = "identity.client_id"

var (
	authNoVerify bool
	authCheck    bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage client credentials",
	Long: `Store, inspect and remove the OAuth2 client credentials used to request
access tokens from the Copernicus Data Space identity service.

The client id is written to the config file. The secret goes to the system
keyring, or to a private file in the config directory when no keyring is
available (or TRACEGAS_NO_KEYRING is set).

Examples:
  # Prompt for the client id and secret
  tracegas auth login

  # Non-interactive
  tracegas auth login --client-id sh-1234 --client-secret s3cret

  # Show where credentials come from and test them
  tracegas auth status --check`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store client credentials",
	Long: `Prompt for a client id and secret, verify them with a token exchange and
store them. Use --no-verify to store without contacting the identity service.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored client credentials",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials are in use",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	authLoginCmd.Flags().BoolVar(&authNoVerify, "no-verify", false, "store without requesting a token")
	authStatusCmd.Flags().BoolVar(&authCheck, "check", false, "request a token to test the credentials")
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	clientID := strings.TrimSpace(flagClientID)
	if clientID == "" {
		current, _ := a.clientID()
		if current != "" {
			cmd.Printf("Client ID [%s]: ", current)
		} else {
			cmd.Print("Client ID: ")
		}
		clientID = readLine(reader)
		if clientID == "" {
			clientID = current
		}
	}

	secret := flagClientSecret
	if secret == "" {
		cmd.Print("Client secret: ")
		secret = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	creds := domain.NewCredentials(clientID, secret, a.settings.Identity.Scopes)
	if err := creds.Validate(); err != nil {
		return err
	}

	if !authNoVerify {
		tok, err := exchangeOnce(cmd.Context(), a, creds)
		if err != nil {
			return fmt.Errorf("credentials were not stored: %w", err)
		}
		cmd.Printf("Token issued, expires %s.\n", tok.ExpiresAt.UTC().Format(time.RFC3339))
	}

	if err := a.secrets.Set(clientID, secret); err != nil {
		return fmt.Errorf("storing client secret: %w", err)
	}
	if err := a.settingsService.Set(keyClientID, clientID); err != nil {
		return err
	}

	where := "system keyring"
	if !a.secrets.UsesKeyring() {
		where = "secrets file in " + a.dir
	}
	cmd.Printf("Logged in as client %s (secret %s, stored in %s).\n", clientID, creds.MaskedSecret(), where)
	return nil
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	clientID := a.settings.Identity.ClientID
	if clientID == "" {
		cmd.Println("No stored client credentials.")
		return nil
	}

	if err := a.secrets.Delete(clientID); err != nil {
		return fmt.Errorf("removing client secret: %w", err)
	}
	if err := a.settingsService.Set(keyClientID, ""); err != nil {
		return err
	}
	cmd.Printf("Removed credentials for client %s.\n", clientID)
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	cmd.Printf("Token URL: %s\n", a.settings.Identity.TokenURL)

	clientID, idSource := a.clientID()
	if clientID == "" {
		cmd.Println("Client ID: (not set)")
		cmd.Println("Run 'tracegas auth login' to store credentials.")
		return nil
	}
	cmd.Printf("Client ID: %s (from %s)\n", clientID, idSource)

	secret, secretSource, err := a.clientSecret(clientID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cmd.Println("Secret:    (not set)")
		return nil
	case err != nil:
		return fmt.Errorf("reading client secret: %w", err)
	}
	creds := domain.NewCredentials(clientID, secret, a.settings.Identity.Scopes)
	cmd.Printf("Secret:    %s (from %s)\n", creds.MaskedSecret(), secretSource)
	if len(creds.Scopes) > 0 {
		cmd.Printf("Scopes:    %s\n", creds.Scope())
	}

	if !authCheck {
		return nil
	}
	tok, err := exchangeOnce(cmd.Context(), a, creds)
	if err != nil {
		return err
	}
	cmd.Printf("Token OK, expires %s.\n", tok.ExpiresAt.UTC().Format(time.RFC3339))
	return nil
}

// exchangeOnce requests a single token without caching it.
func exchangeOnce(ctx context.Context, a *app, creds domain.Credentials) (domain.Token, error) {
	exchanger, err := oauth.NewExchanger(a.settings.Identity.TokenURL, creds)
	if err != nil {
		return domain.Token{}, err
	}
	if d := a.settings.Refresh.RequestTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return exchanger.Exchange(ctx)
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// readPassword reads without echo when in is a terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}
