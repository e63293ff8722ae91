// Package oauth exchanges OAuth2 client credentials for bearer tokens.
package oauth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
)

// Ensure Exchanger implements the interface.
var _ driven.TokenExchanger = (*Exchanger)(nil)

// Exchanger performs the client-credentials grant against one token endpoint.
type Exchanger struct {
	cfg    clientcredentials.Config
	client *http.Client
}

// Option configures an Exchanger.
type Option func(*Exchanger)

// WithHTTPClient sets the HTTP client used for the token request.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Exchanger) { e.client = c }
}

// NewExchanger creates an exchanger for creds at tokenURL.
// Credentials are sent as form parameters, as the Copernicus identity service expects.
func NewExchanger(tokenURL string, creds domain.Credentials, opts ...Option) (*Exchanger, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(tokenURL) == "" {
		return nil, &domain.InvalidArgumentError{Arg: "token_url", Reason: "must not be empty"}
	}

	e := &Exchanger{
		cfg: clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       creds.Scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Exchange requests a new token. Any failure is a *domain.AuthenticationError
// carrying the HTTP status and the provider's error text when there is one.
func (e *Exchanger) Exchange(ctx context.Context) (domain.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client)

	tok, err := e.cfg.Token(ctx)
	if err != nil {
		return domain.Token{}, toAuthError(ctx, err)
	}
	if tok.AccessToken == "" {
		return domain.Token{}, &domain.AuthenticationError{Message: "response missing access_token"}
	}
	if tok.Expiry.IsZero() {
		return domain.Token{}, &domain.AuthenticationError{Message: "response missing expires_in"}
	}

	return domain.Token{Value: tok.AccessToken, ExpiresAt: tok.Expiry}, nil
}

// toAuthError maps an oauth2 failure to the domain error.
func toAuthError(ctx context.Context, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		authErr := &domain.AuthenticationError{Err: err}
		if retrieveErr.Response != nil {
			authErr.Status = retrieveErr.Response.StatusCode
		}
		switch {
		case retrieveErr.ErrorCode != "" && retrieveErr.ErrorDescription != "":
			authErr.Message = retrieveErr.ErrorCode + ": " + retrieveErr.ErrorDescription
		case retrieveErr.ErrorCode != "":
			authErr.Message = retrieveErr.ErrorCode
		default:
			authErr.Message = strings.TrimSpace(string(retrieveErr.Body))
		}
		return authErr
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return &domain.AuthenticationError{Message: "token request aborted", Err: ctxErr}
	}
	return &domain.AuthenticationError{Err: err}
}
