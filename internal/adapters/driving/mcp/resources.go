package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for tracegas resources.
	uriScheme = "tracegas://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "layer/active",
		Name:        "active-layer",
		Description: "The overlay currently shown: day, product and WMS parameters",
		MIMEType:    "application/json",
	}, s.handleActiveLayerResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "legend",
		Name:        "legend",
		Description: "Colour scale of the configured trace gas",
		MIMEType:    "application/json",
	}, s.handleLegendResource)
}

// activeLayer is the JSON form of the active layer state. The access token
// itself is left out.
type activeLayer struct {
	Date           string            `json:"date,omitempty"`
	Product        *ProductOutput    `json:"product,omitempty"`
	Params         *domain.WMSParams `json:"params,omitempty"`
	TokenExpiresAt string            `json:"token_expires_at,omitempty"`
	RefreshActive  bool              `json:"refresh_active"`
}

// handleActiveLayerResource returns the active layer state.
func (s *Server) handleActiveLayerResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Session == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	state := s.ports.Session.State()
	layer := activeLayer{
		Date:          state.Date.String(),
		RefreshActive: state.RefreshActive,
	}
	if state.CurrentProduct != nil {
		p := toProductOutput(*state.CurrentProduct)
		layer.Product = &p
	}
	if state.Params != nil {
		params := *state.Params
		params.AccessToken = ""
		layer.Params = &params
	}
	if !state.CurrentToken.IsZero() {
		layer.TokenExpiresAt = state.CurrentToken.ExpiresAt.UTC().Format(domain.InstantLayout)
	}

	return jsonResult(req.Params.URI, layer, "active layer")
}

// handleLegendResource returns the colour legend.
func (s *Server) handleLegendResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return jsonResult(req.Params.URI, s.ports.Legend, "legend")
}

func jsonResult(uri string, v any, what string) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", what, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
