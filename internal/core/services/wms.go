package services

import (
	"net/url"
	"strings"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driving"
)

// Ensure WMSBuilder implements the interface.
var _ driving.LayerBuilder = (*WMSBuilder)(nil)

// escapedPlaceholder is how url.Values encodes the tile bbox placeholder.
var escapedPlaceholder = url.QueryEscape(domain.TileBBoxPlaceholder)

// WMSBuilder builds overlay parameters from rendering settings.
type WMSBuilder struct {
	cfg domain.WMSSettings
}

// NewWMSBuilder creates a builder. An unknown time mode falls back to midpoint.
func NewWMSBuilder(cfg domain.WMSSettings) *WMSBuilder {
	if !cfg.TimeMode.IsValid() {
		cfg.TimeMode = domain.TimeModeMidpoint
	}
	return &WMSBuilder{cfg: cfg}
}

// Settings returns the builder's settings.
func (b *WMSBuilder) Settings() domain.WMSSettings {
	return b.cfg
}

// Build returns tile-layer parameters for p authorised by tok.
func (b *WMSBuilder) Build(p domain.Product, tok domain.Token) domain.WMSParams {
	return domain.WMSParams{
		Layer:       b.cfg.Layer,
		Style:       b.cfg.Style,
		Time:        b.cfg.TimeMode.Format(p),
		ColorRange:  b.cfg.ColorRange,
		AccessToken: tok.Value,
		CRS:         b.cfg.CRS,
		BBox:        domain.TileBBoxPlaceholder,
		Format:      b.cfg.Format,
		Version:     b.cfg.Version,
		Width:       b.cfg.Width,
		Height:      b.cfg.Height,
		Transparent: true,
		Opacity:     b.cfg.Opacity,
	}
}

// TileURL returns a tile template with the bbox placeholder left unescaped.
func (b *WMSBuilder) TileURL(params domain.WMSParams) string {
	enc := params.Values().Encode()
	enc = strings.Replace(enc, escapedPlaceholder, domain.TileBBoxPlaceholder, 1)
	return b.join(enc)
}

// GetMapURL returns a single-image request in EPSG:4326 covering bbox.
func (b *WMSBuilder) GetMapURL(params domain.WMSParams, bbox domain.BBox, width, height int) string {
	params.CRS = "EPSG:4326"
	if strings.HasPrefix(params.Version, "1.3") {
		params.BBox = bbox.WMS130()
	} else {
		params.BBox = bbox.LonLat()
	}
	params.Width = width
	params.Height = height
	return b.join(params.Values().Encode())
}

func (b *WMSBuilder) join(query string) string {
	sep := "?"
	if strings.Contains(b.cfg.URL, "?") {
		sep = "&"
	}
	return b.cfg.URL + sep + query
}
