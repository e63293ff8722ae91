package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

// mockResolver is a mock implementation of driving.ProductResolver.
type mockResolver struct {
	products []domain.Product
	err      error
	days     []domain.DateKey
}

func (m *mockResolver) FetchForDate(ctx context.Context, date time.Time) ([]domain.Product, error) {
	day, err := domain.NewDateKey(date)
	if err != nil {
		return nil, err
	}
	return m.FetchForDay(ctx, day)
}

func (m *mockResolver) FetchForDay(_ context.Context, day domain.DateKey) ([]domain.Product, error) {
	m.days = append(m.days, day)
	return m.products, m.err
}

// mockBuilder is a mock implementation of driving.LayerBuilder.
type mockBuilder struct{}

func (mockBuilder) Build(p domain.Product, tok domain.Token) domain.WMSParams {
	return domain.WMSParams{Layer: "S5_CO_CDAS", Time: domain.TimeModeMidpoint.Format(p), AccessToken: tok.Value}
}

func (mockBuilder) TileURL(params domain.WMSParams) string {
	return "https://wms.test/wms?LAYERS=" + params.Layer + "&ACCESS_TOKEN=" + params.AccessToken
}

func (mockBuilder) GetMapURL(params domain.WMSParams, _ domain.BBox, _, _ int) string {
	return "https://wms.test/wms?LAYERS=" + params.Layer
}

// mockSession is a mock implementation of driving.OverlaySession.
type mockSession struct {
	state    domain.ActiveLayerState
	onSelect func(day domain.DateKey) domain.ActiveLayerState
	err      error
	selected []time.Time
	closes   int
}

func (m *mockSession) SelectDate(_ context.Context, date time.Time) error {
	m.selected = append(m.selected, date)
	if m.err != nil {
		return m.err
	}
	if m.onSelect != nil {
		day, _ := domain.NewDateKey(date)
		m.state = m.onSelect(day)
	}
	return nil
}

func (m *mockSession) Reconfigure(domain.WMSSettings) {}

func (m *mockSession) State() domain.ActiveLayerState {
	return m.state
}

func (m *mockSession) Close() {
	m.closes++
}

func testProduct() domain.Product {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return domain.Product{
		ID:               "S5P_X",
		AcquisitionStart: start,
		AcquisitionEnd:   start.Add(100 * time.Minute),
		Footprint:        &domain.Footprint{Ring: [][2]float64{{10, 40}, {20, 40}, {20, 50}, {10, 40}}},
	}
}

func mustDay(s string) domain.DateKey {
	day, err := domain.ParseDateKey(s)
	if err != nil {
		panic(err)
	}
	return day
}
