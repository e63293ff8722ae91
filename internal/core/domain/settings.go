package domain

import (
	"fmt"
	"strings"
	"time"
)

// Gas selects a product and visualisation preset.
type Gas string

// Supported presets.
const (
	GasCO  Gas = "co"
	GasNO2 Gas = "no2"
)

// IsValid returns true if the gas is recognised.
func (g Gas) IsValid() bool {
	_, ok := presets[g]
	return ok
}

// String returns the string representation.
func (g Gas) String() string {
	return string(g)
}

// Preset bundles the catalogue and rendering settings for one gas.
type Preset struct {
	ProductType string
	Layer       string
	Style       string
	ColorRange  string
	Legend      Legend
}

var presets = map[Gas]Preset{
	GasCO: {
		ProductType: "L2__CO____",
		Layer:       "S5_CO_CDAS",
		Style:       "RASTER/CO_VISUALIZED",
		ColorRange:  "0,0.12",
		Legend:      COLegend,
	},
	GasNO2: {
		ProductType: "L2__NO2___",
		Layer:       "S5_NO2_CDAS",
		Style:       "RASTER/NO2_VISUALIZED",
		ColorRange:  "0,0.0003",
		Legend:      NO2Legend,
	},
}

// PresetFor returns the preset for g.
func PresetFor(g Gas) (Preset, error) {
	p, ok := presets[g]
	if !ok {
		return Preset{}, &InvalidArgumentError{Arg: "gas", Reason: fmt.Sprintf("unknown preset %q", g)}
	}
	return p, nil
}

// Settings is the full runtime configuration.
type Settings struct {
	Gas      Gas
	Identity IdentitySettings
	Catalog  CatalogSettings
	WMS      WMSSettings
	Refresh  RefreshSettings
	Cache    CacheSettings
}

// IdentitySettings locate the OAuth2 token endpoint and the client pair.
type IdentitySettings struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Credentials returns the configured client pair.
func (s IdentitySettings) Credentials() Credentials {
	return NewCredentials(s.ClientID, s.ClientSecret, s.Scopes)
}

// CatalogSettings configure the product catalogue.
type CatalogSettings struct {
	URL               string
	Collection        string
	ProductType       string
	MaxResults        int
	RequestsPerSecond float64
}

// CacheScope names the catalogue query whose results may be shared through a
// product cache. Changing the endpoint, collection or product type changes it.
func (c CatalogSettings) CacheScope() string {
	return strings.TrimRight(c.URL, "/") + "|" + c.Collection + "|" + c.ProductType
}

// WMSSettings configure overlay rendering.
type WMSSettings struct {
	URL        string
	Layer      string
	Style      string
	ColorRange string
	TimeMode   TimeMode
	CRS        string
	Format     string
	Version    string
	Width      int
	Height     int
	Opacity    float64
}

// RefreshSettings configure timers and timeouts.
type RefreshSettings struct {
	Interval       time.Duration
	TokenBuffer    time.Duration
	RequestTimeout time.Duration
	RetryBackoff   time.Duration
}

// CacheBackend selects where resolved products are cached.
type CacheBackend string

// Available cache backends.
const (
	CacheNone   CacheBackend = "none"
	CacheMemory CacheBackend = "memory"
	CacheSQLite CacheBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b CacheBackend) IsValid() bool {
	switch b {
	case CacheNone, CacheMemory, CacheSQLite:
		return true
	default:
		return false
	}
}

// CacheSettings configure the product cache.
type CacheSettings struct {
	Backend CacheBackend
	TTL     time.Duration
	Size    int
}

// DefaultSettings returns the Copernicus Data Space defaults for CO.
func DefaultSettings() Settings {
	co := presets[GasCO]
	return Settings{
		Gas: GasCO,
		Identity: IdentitySettings{
			TokenURL: "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token",
		},
		Catalog: CatalogSettings{
			URL:               "https://catalogue.dataspace.copernicus.eu/odata/v1/Products",
			Collection:        "SENTINEL-5P",
			ProductType:       co.ProductType,
			MaxResults:        5,
			RequestsPerSecond: 2,
		},
		WMS: WMSSettings{
			URL:        "https://sh.dataspace.copernicus.eu/wms",
			Layer:      co.Layer,
			Style:      co.Style,
			ColorRange: co.ColorRange,
			TimeMode:   TimeModeMidpoint,
			CRS:        "EPSG:3857",
			Format:     "image/png",
			Version:    "1.3.0",
			Width:      1024,
			Height:     1024,
			Opacity:    0.8,
		},
		Refresh: RefreshSettings{
			Interval:       5 * time.Minute,
			TokenBuffer:    30 * time.Second,
			RequestTimeout: 10 * time.Second,
			RetryBackoff:   time.Second,
		},
		Cache: CacheSettings{
			Backend: CacheMemory,
			TTL:     30 * time.Minute,
			Size:    64,
		},
	}
}
