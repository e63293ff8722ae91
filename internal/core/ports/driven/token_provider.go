package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

// TokenProvider provides access tokens for authenticated API calls.
// Implementations handle token refresh transparently.
//
// This interface is designed to work alongside background refresh:
//   - Background refresh: proactive, on a fixed interval
//   - GetToken: reactive, when the cached token is inside its expiry buffer
type TokenProvider interface {
	// GetToken returns a token that is not expired at hand-off.
	// Failures are *domain.AuthenticationError.
	GetToken(ctx context.Context) (domain.Token, error)
}

// RefreshingTokenProvider is a TokenProvider with a background refresh loop.
type RefreshingTokenProvider interface {
	TokenProvider

	// StartBackgroundRefresh starts the loop unless one is already running.
	// It reports whether a new loop was started.
	StartBackgroundRefresh(interval time.Duration, onRefreshed func(domain.Token)) bool

	// StopBackgroundRefresh stops the loop and waits for it to exit.
	StopBackgroundRefresh()

	// IsRefreshing reports whether a refresh loop is running.
	IsRefreshing() bool
}

// TokenInvalidator is implemented by providers that can drop a token the
// server rejected before it expired.
type TokenInvalidator interface {
	Invalidate()
}

// TokenExchanger performs one OAuth2 client-credentials exchange.
type TokenExchanger interface {
	// Exchange requests a new token. ExpiresAt is issue time plus expires_in.
	Exchange(ctx context.Context) (domain.Token, error)
}
