package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tracegas-cli/internal/logger"
)

// Ensure TokenProvider implements the interface.
var (
	_ driven.RefreshingTokenProvider = (*TokenProvider)(nil)
	_ driven.TokenInvalidator        = (*TokenProvider)(nil)
)

const tokenFlightKey = "client_credentials"

// TokenProvider caches one bearer token and refreshes it on demand or on a timer.
type TokenProvider struct {
	exchanger driven.TokenExchanger
	metrics   driven.Metrics
	buffer    time.Duration
	timeout   time.Duration
	now       func() time.Time

	mu    sync.RWMutex
	token domain.Token

	// flight collapses concurrent exchanges into one.
	flight singleflight.Group

	loopMu     sync.Mutex
	running    bool
	stopCh     chan struct{}
	loopCancel context.CancelFunc
	wg         sync.WaitGroup
}

// TokenProviderOption configures a TokenProvider.
type TokenProviderOption func(*TokenProvider)

// WithTokenBuffer sets how long before expiry a token stops being handed out.
func WithTokenBuffer(d time.Duration) TokenProviderOption {
	return func(p *TokenProvider) { p.buffer = d }
}

// WithExchangeTimeout bounds each token exchange.
func WithExchangeTimeout(d time.Duration) TokenProviderOption {
	return func(p *TokenProvider) { p.timeout = d }
}

// WithTokenClock replaces time.Now, for tests.
func WithTokenClock(now func() time.Time) TokenProviderOption {
	return func(p *TokenProvider) { p.now = now }
}

// WithTokenMetrics records exchange outcomes.
func WithTokenMetrics(m driven.Metrics) TokenProviderOption {
	return func(p *TokenProvider) { p.metrics = m }
}

// NewTokenProvider creates a provider around exchanger.
func NewTokenProvider(exchanger driven.TokenExchanger, opts ...TokenProviderOption) *TokenProvider {
	p := &TokenProvider{
		exchanger: exchanger,
		metrics:   NopMetrics{},
		buffer:    30 * time.Second,
		timeout:   10 * time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetToken returns the cached token while it is outside the expiry buffer,
// otherwise it exchanges credentials for a new one. Concurrent callers share
// a single exchange. Authentication failures are returned, never retried.
func (p *TokenProvider) GetToken(ctx context.Context) (domain.Token, error) {
	if tok, ok := p.cached(); ok {
		return tok, nil
	}

	// The exchange runs on a context detached from this caller so that one
	// caller giving up does not fail the others waiting on it.
	flightCtx := context.WithoutCancel(ctx)
	ch := p.flight.DoChan(tokenFlightKey, func() (any, error) {
		return p.exchange(flightCtx)
	})

	select {
	case <-ctx.Done():
		return domain.Token{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Token{}, res.Err
		}
		if res.Shared {
			p.metrics.TokenExchange(driven.OutcomeShared, 0)
		}
		tok, _ := res.Val.(domain.Token)
		return tok, nil
	}
}

// exchange performs one exchange and stores the result.
func (p *TokenProvider) exchange(ctx context.Context) (domain.Token, error) {
	// Another flight may have finished between the cache check and this one.
	if tok, ok := p.cached(); ok {
		return tok, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := p.now()
	tok, err := p.exchanger.Exchange(ctx)
	elapsed := p.now().Sub(start)
	if err != nil {
		p.metrics.TokenExchange(driven.OutcomeFailure, elapsed)
		var authErr *domain.AuthenticationError
		if !errors.As(err, &authErr) {
			err = &domain.AuthenticationError{Err: err}
		}
		return domain.Token{}, err
	}
	if tok.Value == "" || !p.now().Before(tok.ExpiresAt) {
		p.metrics.TokenExchange(driven.OutcomeFailure, elapsed)
		return domain.Token{}, &domain.AuthenticationError{Message: "identity provider returned an expired or empty token"}
	}

	p.mu.Lock()
	p.token = tok
	p.mu.Unlock()

	p.metrics.TokenExchange(driven.OutcomeSuccess, elapsed)
	logger.Debug("token issued, expires at %s", tok.ExpiresAt.UTC().Format(time.RFC3339))
	return tok, nil
}

// cached returns the stored token if it is outside the expiry buffer.
func (p *TokenProvider) cached() (domain.Token, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.token.ValidAt(p.now(), p.buffer) {
		return p.token, true
	}
	return domain.Token{}, false
}

// Current returns the stored token without refreshing it. It may be stale.
func (p *TokenProvider) Current() domain.Token {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// Invalidate drops the cached token so the next GetToken exchanges again.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = domain.Token{}
}

// StartBackgroundRefresh calls GetToken every interval and hands the result
// to onRefreshed. It is a no-op while a loop is already running and reports
// whether it started one. Failures are logged and the loop keeps going with
// the previously cached token.
//
// onRefreshed runs on the loop goroutine and must not call StopBackgroundRefresh.
func (p *TokenProvider) StartBackgroundRefresh(interval time.Duration, onRefreshed func(domain.Token)) bool {
	if interval <= 0 {
		return false
	}

	p.loopMu.Lock()
	defer p.loopMu.Unlock()
	if p.running {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.running = true
	p.stopCh = make(chan struct{})
	p.loopCancel = cancel

	p.wg.Add(1)
	go p.refreshLoop(ctx, interval, p.stopCh, onRefreshed)
	return true
}

// StopBackgroundRefresh stops the refresh loop and waits for it to exit.
// It is safe to call when no loop is running.
func (p *TokenProvider) StopBackgroundRefresh() {
	p.loopMu.Lock()
	if !p.running {
		p.loopMu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.loopCancel()
	p.loopMu.Unlock()

	p.wg.Wait()
}

// IsRefreshing reports whether a refresh loop is running.
func (p *TokenProvider) IsRefreshing() bool {
	p.loopMu.Lock()
	defer p.loopMu.Unlock()
	return p.running
}

// refreshLoop is the background refresh loop.
func (p *TokenProvider) refreshLoop(
	ctx context.Context,
	interval time.Duration,
	stopCh <-chan struct{},
	onRefreshed func(domain.Token),
) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			tok, err := p.GetToken(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("token refresh failed: %v", err)
				continue
			}
			if onRefreshed != nil {
				onRefreshed(tok)
			}
		}
	}
}
