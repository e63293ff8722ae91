package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
)

// --- Shared test doubles ---

// fakeClock is a settable clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeExchanger issues numbered tokens valid for ttl.
type fakeExchanger struct {
	clock *fakeClock
	ttl   time.Duration
	calls atomic.Int32

	mu      sync.Mutex
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func newFakeExchanger(clock *fakeClock, ttl time.Duration) *fakeExchanger {
	return &fakeExchanger{clock: clock, ttl: ttl}
}

func (f *fakeExchanger) Exchange(ctx context.Context) (domain.Token, error) {
	n := f.calls.Add(1)

	f.mu.Lock()
	gate, entered, err := f.gate, f.entered, f.err
	f.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Token{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.Token{}, err
	}
	return domain.Token{
		Value:     fmt.Sprintf("token-%d", n),
		ExpiresAt: f.clock.Now().Add(f.ttl),
	}, nil
}

func (f *fakeExchanger) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// block makes the next exchanges wait until the returned func is called.
func (f *fakeExchanger) block() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 1)
	gate := f.gate
	return f.entered, func() { close(gate) }
}

// staticTokens is a TokenProvider that returns a fixed token or error.
type staticTokens struct {
	mu    sync.Mutex
	tok   domain.Token
	err   error
	calls int
}

func (s *staticTokens) GetToken(_ context.Context) (domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.tok, s.err
}

// fakeRefresher is a RefreshingTokenProvider whose refresh loop is driven by tests.
type fakeRefresher struct {
	staticTokens

	loopMu      sync.Mutex
	starts      int
	running     bool
	stops       int
	onRefreshed func(domain.Token)
}

func (f *fakeRefresher) StartBackgroundRefresh(_ time.Duration, onRefreshed func(domain.Token)) bool {
	f.loopMu.Lock()
	defer f.loopMu.Unlock()
	if f.running {
		return false
	}
	f.starts++
	f.running = true
	f.onRefreshed = onRefreshed
	return true
}

func (f *fakeRefresher) StopBackgroundRefresh() {
	f.loopMu.Lock()
	defer f.loopMu.Unlock()
	f.stops++
	f.running = false
}

func (f *fakeRefresher) IsRefreshing() bool {
	f.loopMu.Lock()
	defer f.loopMu.Unlock()
	return f.running
}

// tick simulates one refresh with tok.
func (f *fakeRefresher) tick(tok domain.Token) {
	f.mu.Lock()
	f.tok = tok
	f.mu.Unlock()

	f.loopMu.Lock()
	cb := f.onRefreshed
	f.loopMu.Unlock()
	if cb != nil {
		cb(tok)
	}
}

// fakeCatalog returns canned entries and records queries.
type fakeCatalog struct {
	mu      sync.Mutex
	entries []domain.CatalogEntry
	errs    []error
	queries []domain.CatalogQuery
	tokens  []string
	// search overrides the canned response when set.
	search func(ctx context.Context, q domain.CatalogQuery) ([]domain.CatalogEntry, error)
}

func (f *fakeCatalog) Search(ctx context.Context, accessToken string, q domain.CatalogQuery) ([]domain.CatalogEntry, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.tokens = append(f.tokens, accessToken)
	search := f.search
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	entries := f.entries
	f.mu.Unlock()

	if search != nil {
		return search(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (f *fakeCatalog) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// memCache is a map-backed ProductCache.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]domain.Product
	getErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]domain.Product)}
}

func (c *memCache) Get(_ context.Context, scope string, day domain.DateKey) ([]domain.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	p, ok := c.entries[scope+"/"+day.String()]
	return p, ok, nil
}

func (c *memCache) Put(_ context.Context, scope string, day domain.DateKey, products []domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[scope+"/"+day.String()] = products
	return nil
}

func (c *memCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]domain.Product)
	return nil
}

// recordingShell captures callbacks.
type recordingShell struct {
	mu        sync.Mutex
	resolved  []domain.Overlay
	empty     []domain.DateKey
	failures  []domain.ErrorKind
	messages  []string
	refreshed []domain.Token
}

func (r *recordingShell) OnProductResolved(o domain.Overlay) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, o)
}

func (r *recordingShell) OnNoProducts(day domain.DateKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.empty = append(r.empty, day)
}

func (r *recordingShell) OnResolutionFailed(kind domain.ErrorKind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, kind)
	r.messages = append(r.messages, msg)
}

func (r *recordingShell) OnTokenRefreshed(tok domain.Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed = append(r.refreshed, tok)
}

func (r *recordingShell) resolvedCopy() []domain.Overlay {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Overlay(nil), r.resolved...)
}

// countingMetrics counts recorded outcomes.
type countingMetrics struct {
	mu          sync.Mutex
	exchanges   map[string]int
	queries     map[string]int
	resolutions map[string]int
	skipped     int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		exchanges:   make(map[string]int),
		queries:     make(map[string]int),
		resolutions: make(map[string]int),
	}
}

func (m *countingMetrics) TokenExchange(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanges[outcome]++
}

func (m *countingMetrics) CatalogQuery(outcome string, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries[outcome]++
}

func (m *countingMetrics) Resolution(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions[outcome]++
}

func (m *countingMetrics) SkippedRecords(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped += n
}

func (m *countingMetrics) resolution(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolutions[outcome]
}

var _ driven.Metrics = (*countingMetrics)(nil)

// entry builds a catalogue entry acquired at start for d.
func entry(id string, start time.Time, d time.Duration) domain.CatalogEntry {
	return domain.CatalogEntry{
		ID:    id,
		Name:  id + ".nc",
		Start: start.UTC().Format(time.RFC3339Nano),
		End:   start.Add(d).UTC().Format(time.RFC3339Nano),
	}
}

func mustDay(s string) domain.DateKey {
	day, err := domain.ParseDateKey(s)
	if err != nil {
		panic(err)
	}
	return day
}

// reentrantShell reads the session back from inside OnProductResolved, the
// way the CLI and TUI shells do. The first call waits for release.
type reentrantShell struct {
	recordingShell

	session *OverlaySession
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	order   []string
}

func newReentrantShell() *reentrantShell {
	return &reentrantShell{entered: make(chan struct{}), release: make(chan struct{})}
}

func (r *reentrantShell) OnProductResolved(o domain.Overlay) {
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	_ = r.session.Builder().TileURL(o.Params)
	_ = r.session.State()
	r.recordingShell.OnProductResolved(o)
	r.mu.Lock()
	r.order = append(r.order, "resolved:"+o.Params.AccessToken)
	r.mu.Unlock()
}

func (r *reentrantShell) OnTokenRefreshed(tok domain.Token) {
	_ = r.session.State()
	r.recordingShell.OnTokenRefreshed(tok)
	r.mu.Lock()
	r.order = append(r.order, "refreshed:"+tok.Value)
	r.mu.Unlock()
}

func (r *reentrantShell) orderCopy() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}
