package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

func TestNewServer(t *testing.T) {
	t.Run("nil resolver returns error", func(t *testing.T) {
		ports := &Ports{Builder: mockBuilder{}}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingResolver)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Resolver: &mockResolver{},
			Builder:  mockBuilder{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil resolver returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingResolver)
	})

	t.Run("nil builder returns error", func(t *testing.T) {
		ports := &Ports{Resolver: &mockResolver{}}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingBuilder)
	})

	t.Run("session is optional", func(t *testing.T) {
		ports := &Ports{Resolver: &mockResolver{}, Builder: mockBuilder{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Resolver: &mockResolver{},
			Builder:  mockBuilder{},
			Session:  &mockSession{},
		}
		assert.NoError(t, ports.Validate())
	})
}

func TestServer_RunTransport(t *testing.T) {
	session := &mockSession{onSelect: func(day domain.DateKey) domain.ActiveLayerState {
		p := testProduct()
		params := mockBuilder{}.Build(p, domain.Token{Value: "tok"})
		return domain.ActiveLayerState{Date: day, CurrentProduct: &p, CurrentToken: domain.Token{Value: "tok"}, Params: &params}
	}}
	server, err := NewServer(&Ports{Resolver: &mockResolver{}, Builder: mockBuilder{}, Session: session})
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- server.RunTransport(ctx, serverTransport) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(context.Background(), clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "select_date",
		Arguments: map[string]any{"date": "2024-01-15"},
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.Len(t, session.selected, 1)
	assert.Equal(t, "2024-01-15", session.selected[0].Format(domain.DateLayout))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, 1, session.closes)
}

func TestServer_RunTransport_WithoutSession(t *testing.T) {
	server, err := NewServer(&Ports{Resolver: &mockResolver{}, Builder: mockBuilder{}})
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.RunTransport(ctx, serverTransport) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(context.Background(), clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
