package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

// DateInput is the input schema for date based tools.
type DateInput struct {
	Date string `json:"date" jsonschema:"the UTC day as YYYY-MM-DD"`
}

// ProductsOutput is the output schema for the list_products tool.
type ProductsOutput struct {
	Date     string          `json:"date"`
	Products []ProductOutput `json:"products"`
	Count    int             `json:"count"`
}

// ProductOutput represents a single catalogue product.
type ProductOutput struct {
	ID               string       `json:"id"`
	Name             string       `json:"name,omitempty"`
	AcquisitionStart string       `json:"acquisition_start"`
	AcquisitionEnd   string       `json:"acquisition_end"`
	Bounds           *domain.BBox `json:"bounds,omitempty"`
}

// LayerOutput is the output schema for the select_date tool.
type LayerOutput struct {
	Date           string         `json:"date"`
	Found          bool           `json:"found"`
	Message        string         `json:"message,omitempty"`
	Product        *ProductOutput `json:"product,omitempty"`
	Time           string         `json:"time,omitempty"`
	Layer          string         `json:"layer,omitempty"`
	TileURL        string         `json:"tile_url,omitempty"`
	TokenExpiresAt string         `json:"token_expires_at,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_products",
		Description: "List Sentinel-5P products acquired on a UTC day, newest first",
	}, s.handleListProducts)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "select_date",
		Description: "Show the newest product of a UTC day as the active WMS overlay and return its tile URL",
	}, s.handleSelectDate)
}

// handleListProducts handles the list_products tool invocation.
func (s *Server) handleListProducts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DateInput,
) (*mcp.CallToolResult, ProductsOutput, error) {
	day, err := domain.ParseDateKey(input.Date)
	if err != nil {
		return nil, ProductsOutput{}, err
	}

	products, err := s.ports.Resolver.FetchForDay(ctx, day)
	if err != nil {
		return nil, ProductsOutput{}, err
	}

	output := ProductsOutput{
		Date:     day.String(),
		Products: make([]ProductOutput, len(products)),
		Count:    len(products),
	}
	for i := range products {
		output.Products[i] = toProductOutput(products[i])
	}

	return nil, output, nil
}

// handleSelectDate handles the select_date tool invocation.
func (s *Server) handleSelectDate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DateInput,
) (*mcp.CallToolResult, LayerOutput, error) {
	if s.ports.Session == nil {
		return nil, LayerOutput{}, ErrNoSession
	}

	day, err := domain.ParseDateKey(input.Date)
	if err != nil {
		return nil, LayerOutput{}, err
	}

	if err := s.ports.Session.SelectDate(ctx, day.Start); err != nil {
		return nil, LayerOutput{}, err
	}

	state := s.ports.Session.State()
	output := LayerOutput{Date: day.String()}
	if state.Date.String() != day.String() || state.CurrentProduct == nil || state.Params == nil {
		output.Message = "no products for " + day.String() + "; the previous overlay is still shown"
		return nil, output, nil
	}

	product := toProductOutput(*state.CurrentProduct)
	output.Found = true
	output.Product = &product
	output.Time = state.Params.Time
	output.Layer = state.Params.Layer
	output.TileURL = s.ports.Builder.TileURL(*state.Params)
	output.TokenExpiresAt = state.CurrentToken.ExpiresAt.UTC().Format(domain.InstantLayout)
	return nil, output, nil
}

func toProductOutput(p domain.Product) ProductOutput {
	out := ProductOutput{
		ID:               p.ID,
		Name:             p.DisplayName,
		AcquisitionStart: p.AcquisitionStart.UTC().Format(domain.InstantLayout),
		AcquisitionEnd:   p.AcquisitionEnd.UTC().Format(domain.InstantLayout),
	}
	if b, ok := p.Footprint.Bounds(); ok {
		out.Bounds = &b
	}
	return out
}
