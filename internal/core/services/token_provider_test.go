package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
)

var epoch = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestProvider(t *testing.T, ttl time.Duration) (*TokenProvider, *fakeExchanger, *fakeClock) {
	t.Helper()
	clock := newFakeClock(epoch)
	ex := newFakeExchanger(clock, ttl)
	p := NewTokenProvider(ex, WithTokenClock(clock.Now), WithTokenBuffer(30*time.Second))
	t.Cleanup(p.StopBackgroundRefresh)
	return p, ex, clock
}

func TestTokenProvider_GetToken_CachesUntilBuffer(t *testing.T) {
	p, ex, clock := newTestProvider(t, 10*time.Minute)
	ctx := context.Background()

	first, err := p.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", first.Value)

	clock.Advance(9 * time.Minute)
	second, err := p.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), ex.calls.Load())

	// Inside the 30s buffer the token is replaced.
	clock.Advance(31 * time.Second)
	third, err := p.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", third.Value)
	assert.Equal(t, int32(2), ex.calls.Load())
}

func TestTokenProvider_GetToken_NeverReturnsExpired(t *testing.T) {
	p, _, clock := newTestProvider(t, 2*time.Minute)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		tok, err := p.GetToken(ctx)
		require.NoError(t, err)
		assert.True(t, clock.Now().Before(tok.ExpiresAt), "token returned after expiry at step %d", i)
		clock.Advance(17 * time.Second)
	}
}

func TestTokenProvider_GetToken_SingleFlight(t *testing.T) {
	p, ex, _ := newTestProvider(t, 10*time.Minute)
	entered, release := ex.block()

	const callers = 16
	var wg sync.WaitGroup
	results := make([]domain.Token, callers)
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = p.GetToken(context.Background())
	}()
	<-entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.GetToken(context.Background())
		}(i)
	}

	// Give the waiters time to join the flight before it completes.
	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()

	assert.Equal(t, int32(1), ex.calls.Load())
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "token-1", results[i].Value)
	}
}

func TestTokenProvider_GetToken_CallerCancelDoesNotFailOthers(t *testing.T) {
	p, ex, _ := newTestProvider(t, 10*time.Minute)
	entered, release := ex.block()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := p.GetToken(ctx)
		errCh <- err
	}()
	<-entered

	okCh := make(chan domain.Token, 1)
	go func() {
		tok, err := p.GetToken(context.Background())
		if err == nil {
			okCh <- tok
		}
		close(okCh)
	}()

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	release()
	tok, ok := <-okCh
	require.True(t, ok)
	assert.Equal(t, "token-1", tok.Value)
	assert.Equal(t, int32(1), ex.calls.Load())
}

func TestTokenProvider_GetToken_AuthenticationFailureNotRetried(t *testing.T) {
	p, ex, _ := newTestProvider(t, 10*time.Minute)
	ex.setErr(&domain.AuthenticationError{Status: 401, Message: "invalid_client"})

	_, err := p.GetToken(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid_client")
	assert.Equal(t, int32(1), ex.calls.Load())
}

func TestTokenProvider_GetToken_WrapsTransportErrors(t *testing.T) {
	p, ex, _ := newTestProvider(t, 10*time.Minute)
	ex.setErr(errors.New("dial tcp: connection refused"))

	_, err := p.GetToken(context.Background())

	var authErr *domain.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.KindAuthentication, domain.KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestTokenProvider_GetToken_RejectsExpiredToken(t *testing.T) {
	p, _, _ := newTestProvider(t, -time.Second)

	_, err := p.GetToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	assert.True(t, p.Current().IsZero())
}

func TestTokenProvider_Invalidate(t *testing.T) {
	p, ex, _ := newTestProvider(t, 10*time.Minute)
	ctx := context.Background()

	_, err := p.GetToken(ctx)
	require.NoError(t, err)
	p.Invalidate()
	assert.True(t, p.Current().IsZero())

	tok, err := p.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok.Value)
	assert.Equal(t, int32(2), ex.calls.Load())
}

func TestTokenProvider_Metrics(t *testing.T) {
	clock := newFakeClock(epoch)
	ex := newFakeExchanger(clock, 10*time.Minute)
	m := newCountingMetrics()
	p := NewTokenProvider(ex, WithTokenClock(clock.Now), WithTokenMetrics(m))

	_, err := p.GetToken(context.Background())
	require.NoError(t, err)
	ex.setErr(errors.New("boom"))
	p.Invalidate()
	_, err = p.GetToken(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, m.exchanges[driven.OutcomeSuccess])
	assert.Equal(t, 1, m.exchanges[driven.OutcomeFailure])
}

func TestTokenProvider_StartBackgroundRefresh_Idempotent(t *testing.T) {
	p, _, _ := newTestProvider(t, 10*time.Minute)

	assert.True(t, p.StartBackgroundRefresh(time.Hour, nil))
	assert.False(t, p.StartBackgroundRefresh(time.Hour, nil))
	assert.True(t, p.IsRefreshing())

	p.StopBackgroundRefresh()
	assert.False(t, p.IsRefreshing())

	// Stopping twice is safe and the loop can be started again.
	p.StopBackgroundRefresh()
	assert.True(t, p.StartBackgroundRefresh(time.Hour, nil))
}

func TestTokenProvider_StartBackgroundRefresh_RejectsNonPositiveInterval(t *testing.T) {
	p, _, _ := newTestProvider(t, 10*time.Minute)

	assert.False(t, p.StartBackgroundRefresh(0, nil))
	assert.False(t, p.IsRefreshing())
}

func TestTokenProvider_BackgroundRefresh_DeliversTokens(t *testing.T) {
	p, _, _ := newTestProvider(t, 10*time.Minute)

	got := make(chan domain.Token, 8)
	require.True(t, p.StartBackgroundRefresh(5*time.Millisecond, func(tok domain.Token) {
		select {
		case got <- tok:
		default:
		}
	}))

	select {
	case tok := <-got:
		assert.Equal(t, "token-1", tok.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh loop did not deliver a token")
	}
	p.StopBackgroundRefresh()
}

func TestTokenProvider_BackgroundRefresh_FailureKeepsCachedToken(t *testing.T) {
	p, ex, clock := newTestProvider(t, 10*time.Minute)

	first, err := p.GetToken(context.Background())
	require.NoError(t, err)

	// Force every tick to attempt an exchange that fails.
	clock.Advance(9*time.Minute + 45*time.Second)
	ex.setErr(errors.New("identity provider unavailable"))

	require.True(t, p.StartBackgroundRefresh(5*time.Millisecond, nil))
	assert.Eventually(t, func() bool { return ex.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, p.IsRefreshing())
	p.StopBackgroundRefresh()

	assert.Equal(t, first, p.Current())
}
