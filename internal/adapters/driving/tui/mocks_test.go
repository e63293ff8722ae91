package tui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

// MockSession implements driving.OverlaySession for TUI tests.
type MockSession struct {
	mu       sync.Mutex
	selected []time.Time
	state    domain.ActiveLayerState
	err      error
}

func (m *MockSession) SelectDate(_ context.Context, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = append(m.selected, date)
	return m.err
}

func (m *MockSession) Reconfigure(domain.WMSSettings) {}

func (m *MockSession) State() domain.ActiveLayerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MockSession) Close() {}

func (m *MockSession) Selected() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.selected...)
}

// MockBuilder implements driving.LayerBuilder for TUI tests.
type MockBuilder struct{}

func (MockBuilder) Build(p domain.Product, tok domain.Token) domain.WMSParams {
	return domain.WMSParams{Layer: "S5_CO_CDAS", Time: domain.TimeModeMidpoint.Format(p), AccessToken: tok.Value}
}

func (MockBuilder) TileURL(params domain.WMSParams) string {
	return "https://wms.test/wms?ACCESS_TOKEN=" + params.AccessToken
}

func (MockBuilder) GetMapURL(params domain.WMSParams, _ domain.BBox, _, _ int) string {
	return "https://wms.test/wms?ACCESS_TOKEN=" + params.AccessToken
}

// recordingSender captures messages sent by the shell.
type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}
