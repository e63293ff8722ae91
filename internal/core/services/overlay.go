package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driving"
	"github.com/custodia-labs/tracegas-cli/internal/logger"
)

// Ensure OverlaySession implements the interface.
var _ driving.OverlaySession = (*OverlaySession)(nil)

// OverlaySession keeps one active overlay in step with date selections and
// token refreshes.
type OverlaySession struct {
	tokens   driven.RefreshingTokenProvider
	resolver driving.ProductResolver
	shell    driven.Shell
	metrics  driven.Metrics
	refresh  domain.RefreshSettings
	newID    func() string

	mu         sync.Mutex
	builder    *WMSBuilder
	generation uint64
	cancel     context.CancelFunc
	closed     bool
	started    bool
	state      domain.ActiveLayerState
	overlay    *domain.Overlay

	// ticket numbers updates under mu; shell callbacks run in ticket order
	// with no session lock held, so a shell may call back into the session.
	ticket    uint64
	notifyMu  sync.Mutex
	notified  *sync.Cond
	delivered uint64
}

// OverlayOption configures an OverlaySession.
type OverlayOption func(*OverlaySession)

// WithOverlayMetrics records resolution outcomes.
func WithOverlayMetrics(m driven.Metrics) OverlayOption {
	return func(s *OverlaySession) { s.metrics = m }
}

// WithResolutionIDs replaces the resolution id generator, for tests.
func WithResolutionIDs(gen func() string) OverlayOption {
	return func(s *OverlaySession) { s.newID = gen }
}

// NewOverlaySession creates a session. A nil shell discards notifications.
func NewOverlaySession(
	tokens driven.RefreshingTokenProvider,
	resolver driving.ProductResolver,
	shell driven.Shell,
	refresh domain.RefreshSettings,
	wms domain.WMSSettings,
	opts ...OverlayOption,
) *OverlaySession {
	if shell == nil {
		shell = nopShell{}
	}
	s := &OverlaySession{
		tokens:   tokens,
		resolver: resolver,
		shell:    shell,
		metrics:  NopMetrics{},
		refresh:  refresh,
		newID:    uuid.NewString,
		builder:  NewWMSBuilder(wms),
	}
	s.notified = sync.NewCond(&s.notifyMu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectDate resolves date and replaces the overlay with its newest product.
//
// Starting a selection cancels the previous one. A selection whose result
// arrives after a newer one started is discarded and returns
// domain.ErrSuperseded. An empty day keeps the current overlay and calls
// Shell.OnNoProducts.
func (s *OverlaySession) SelectDate(ctx context.Context, date time.Time) error {
	day, err := domain.NewDateKey(date)
	if err != nil {
		s.metrics.Resolution(driven.OutcomeFailure)
		s.notify(func(sh driven.Shell) { sh.OnResolutionFailed(domain.KindOf(err), err.Error()) })
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	id := s.newID()
	logger.Debug("resolution %s: selecting %s", id, day)

	products, err := s.resolve(ctx, day)
	var tok domain.Token
	if err == nil && len(products) > 0 {
		tok, err = s.tokens.GetToken(ctx)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.metrics.Resolution(driven.OutcomeStale)
		return domain.ErrSessionClosed
	}
	if gen != s.generation {
		s.mu.Unlock()
		s.metrics.Resolution(driven.OutcomeStale)
		logger.Debug("resolution %s: discarded, superseded by a newer selection", id)
		return domain.ErrSuperseded
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.mu.Unlock()
			s.metrics.Resolution(driven.OutcomeFailure)
			return err
		}
		ticket := s.takeTicketLocked()
		s.mu.Unlock()
		s.metrics.Resolution(driven.OutcomeFailure)
		kind := domain.KindOf(err)
		logger.Warn("resolution %s for %s failed: %v", id, day, err)
		s.deliver(ticket, func(sh driven.Shell) { sh.OnResolutionFailed(kind, err.Error()) })
		return err
	}

	if len(products) == 0 {
		ticket := s.takeTicketLocked()
		s.mu.Unlock()
		s.metrics.Resolution(driven.OutcomeEmpty)
		logger.Info("no products for %s", day)
		s.deliver(ticket, func(sh driven.Shell) { sh.OnNoProducts(day) })
		return nil
	}

	overlay := domain.Overlay{
		ResolutionID: id,
		Date:         day,
		Product:      products[0],
		Alternatives: append([]domain.Product(nil), products[1:]...),
		Params:       s.builder.Build(products[0], tok),
	}
	s.overlay = &overlay
	s.state.Date = day
	product := products[0]
	s.state.CurrentProduct = &product
	s.state.CurrentToken = tok
	params := overlay.Params
	s.state.Params = &params

	// Started under mu so a concurrent Close always sees it.
	if !s.started {
		s.started = s.tokens.StartBackgroundRefresh(s.refresh.Interval, s.onTokenRefreshed)
	}
	resolved := copyOverlay(overlay)
	ticket := s.takeTicketLocked()
	s.mu.Unlock()

	s.metrics.Resolution(driven.OutcomeSuccess)
	logger.Info("showing %s for %s", overlay.Product.Title(), day)
	s.deliver(ticket, func(sh driven.Shell) { sh.OnProductResolved(resolved) })
	return nil
}

// resolve fetches products for day, retrying once on a retryable catalogue failure.
func (s *OverlaySession) resolve(ctx context.Context, day domain.DateKey) ([]domain.Product, error) {
	products, err := s.fetch(ctx, day)
	var catErr *domain.CatalogError
	if err == nil || !errors.As(err, &catErr) || !catErr.Retryable() {
		return products, err
	}

	logger.Warn("catalogue query for %s failed, retrying in %s: %v", day, s.refresh.RetryBackoff, err)
	timer := time.NewTimer(s.refresh.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return s.fetch(ctx, day)
}

// fetch runs one resolver call bounded by the request timeout.
func (s *OverlaySession) fetch(ctx context.Context, day domain.DateKey) ([]domain.Product, error) {
	if s.refresh.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.refresh.RequestTimeout)
		defer cancel()
	}
	return s.resolver.FetchForDay(ctx, day)
}

// onTokenRefreshed swaps the token into the live overlay without rebuilding it.
func (s *OverlaySession) onTokenRefreshed(tok domain.Token) {
	s.mu.Lock()
	if s.closed || s.overlay == nil {
		s.mu.Unlock()
		return
	}
	if tok.Value == s.state.CurrentToken.Value {
		s.mu.Unlock()
		return
	}
	s.overlay.Params.AccessToken = tok.Value
	s.state.CurrentToken = tok
	params := s.overlay.Params
	s.state.Params = &params
	ticket := s.takeTicketLocked()
	s.mu.Unlock()

	logger.Debug("overlay token refreshed, expires %s", tok.ExpiresAt.UTC().Format(time.RFC3339))
	s.deliver(ticket, func(sh driven.Shell) { sh.OnTokenRefreshed(tok) })
}

// Reconfigure rebuilds the live overlay's parameters with new rendering settings.
// The product and token are kept; the shell is told about the rebuilt overlay.
func (s *OverlaySession) Reconfigure(wms domain.WMSSettings) {
	s.mu.Lock()
	s.builder = NewWMSBuilder(wms)
	if s.closed || s.overlay == nil {
		s.mu.Unlock()
		return
	}
	s.overlay.Params = s.builder.Build(s.overlay.Product, s.state.CurrentToken)
	params := s.overlay.Params
	s.state.Params = &params
	overlay := copyOverlay(*s.overlay)
	ticket := s.takeTicketLocked()
	s.mu.Unlock()

	s.deliver(ticket, func(sh driven.Shell) { sh.OnProductResolved(overlay) })
}

// Overlay returns the live overlay, if any.
func (s *OverlaySession) Overlay() (domain.Overlay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overlay == nil {
		return domain.Overlay{}, false
	}
	return copyOverlay(*s.overlay), true
}

// Builder returns the current WMS builder.
func (s *OverlaySession) Builder() *WMSBuilder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder
}

// State returns a copy of the active layer state.
func (s *OverlaySession) State() domain.ActiveLayerState {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()

	if st.CurrentProduct != nil {
		p := *st.CurrentProduct
		st.CurrentProduct = &p
	}
	if st.Params != nil {
		params := *st.Params
		st.Params = &params
	}
	st.RefreshActive = s.tokens.IsRefreshing()
	return st
}

// Close stops background refresh and discards any in-flight selection.
// It is safe to call more than once.
func (s *OverlaySession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.tokens.StopBackgroundRefresh()
	logger.Debug("overlay session closed")
}

// notify runs fn against the shell in order with other notifications.
// The caller must not hold mu.
func (s *OverlaySession) notify(fn func(driven.Shell)) {
	s.mu.Lock()
	ticket := s.takeTicketLocked()
	s.mu.Unlock()
	s.deliver(ticket, fn)
}

// takeTicketLocked reserves the next delivery slot. The caller holds mu and
// must pass the ticket to deliver exactly once.
func (s *OverlaySession) takeTicketLocked() uint64 {
	t := s.ticket
	s.ticket++
	return t
}

// deliver waits for every earlier ticket, then runs fn against the shell.
// The caller must not hold mu.
func (s *OverlaySession) deliver(ticket uint64, fn func(driven.Shell)) {
	s.notifyMu.Lock()
	for s.delivered != ticket {
		s.notified.Wait()
	}
	s.notifyMu.Unlock()

	defer func() {
		s.notifyMu.Lock()
		s.delivered++
		s.notified.Broadcast()
		s.notifyMu.Unlock()
	}()
	fn(s.shell)
}

func copyOverlay(o domain.Overlay) domain.Overlay {
	o.Alternatives = append([]domain.Product(nil), o.Alternatives...)
	return o
}

// nopShell discards notifications.
type nopShell struct{}

func (nopShell) OnProductResolved(domain.Overlay) {}

func (nopShell) OnNoProducts(domain.DateKey) {}

func (nopShell) OnResolutionFailed(domain.ErrorKind, string) {}

func (nopShell) OnTokenRefreshed(domain.Token) {}
