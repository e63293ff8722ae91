package domain

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// TileBBoxPlaceholder is substituted per tile by web map clients.
const TileBBoxPlaceholder = "{bbox-epsg-3857}"

// TimeMode selects how a product's acquisition window becomes the WMS TIME value.
type TimeMode string

// Available time modes.
const (
	// TimeModeMidpoint sends the instant halfway through the acquisition.
	TimeModeMidpoint TimeMode = "midpoint"

	// TimeModeInterval sends start/end for services that accept intervals.
	TimeModeInterval TimeMode = "interval"
)

// IsValid returns true if the mode is recognised.
func (m TimeMode) IsValid() bool {
	return m == TimeModeMidpoint || m == TimeModeInterval
}

// Format renders the TIME value for p.
func (m TimeMode) Format(p Product) string {
	if m == TimeModeInterval {
		return p.AcquisitionStart.UTC().Format(InstantLayout) + "/" + p.AcquisitionEnd.UTC().Format(InstantLayout)
	}
	return p.Midpoint().UTC().Truncate(time.Second).Format(InstantLayout)
}

// WMSParams are the request parameters for one overlay layer.
type WMSParams struct {
	Layer       string  `json:"layers"`
	Style       string  `json:"styles"`
	Time        string  `json:"time"`
	ColorRange  string  `json:"colorscalerange"`
	AccessToken string  `json:"access_token"`
	CRS         string  `json:"crs"`
	BBox        string  `json:"bbox"`
	Format      string  `json:"format"`
	Version     string  `json:"version"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Transparent bool    `json:"transparent"`
	Opacity     float64 `json:"opacity"`
}

// Values returns the parameters as a GetMap query.
// Opacity is a client-side setting and is not sent.
func (p WMSParams) Values() url.Values {
	v := url.Values{}
	v.Set("SERVICE", "WMS")
	v.Set("REQUEST", "GetMap")
	v.Set("VERSION", p.Version)
	v.Set("LAYERS", p.Layer)
	v.Set("STYLES", p.Style)
	v.Set("FORMAT", p.Format)
	v.Set("TRANSPARENT", strings.ToUpper(strconv.FormatBool(p.Transparent)))
	v.Set("TIME", p.Time)
	v.Set("COLORSCALERANGE", p.ColorRange)
	v.Set("ACCESS_TOKEN", p.AccessToken)
	if strings.HasPrefix(p.Version, "1.3") {
		v.Set("CRS", p.CRS)
	} else {
		v.Set("SRS", p.CRS)
	}
	if p.BBox != "" {
		v.Set("BBOX", p.BBox)
	}
	if p.Width > 0 {
		v.Set("WIDTH", strconv.Itoa(p.Width))
	}
	if p.Height > 0 {
		v.Set("HEIGHT", strconv.Itoa(p.Height))
	}
	return v
}

// Overlay is what a shell needs to draw the current layer.
type Overlay struct {
	// ResolutionID identifies the date selection that produced this overlay.
	ResolutionID string `json:"resolution_id"`

	// Date is the selected day.
	Date DateKey `json:"-"`

	// Product is the newest product for Date.
	Product Product `json:"product"`

	// Alternatives holds the remaining products for Date, newest first.
	Alternatives []Product `json:"alternatives,omitempty"`

	// Params are the WMS parameters for Product.
	Params WMSParams `json:"params"`
}

// ActiveLayerState is the overlay currently shown by a session.
type ActiveLayerState struct {
	Date           DateKey
	CurrentProduct *Product
	CurrentToken   Token
	Params         *WMSParams
	RefreshActive  bool
}
