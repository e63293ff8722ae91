package domain

import (
	"fmt"
	"time"
)

// Product is one satellite acquisition returned by the catalogue.
// Products are immutable once built from a catalogue record.
type Product struct {
	// ID is the catalogue identifier.
	ID string `json:"id"`

	// DisplayName is the product file name, when the catalogue reports one.
	DisplayName string `json:"name,omitempty"`

	// AcquisitionStart is the sensing start time.
	AcquisitionStart time.Time `json:"acquisition_start"`

	// AcquisitionEnd is the sensing end time.
	AcquisitionEnd time.Time `json:"acquisition_end"`

	// Footprint is the product's outer ring, when known.
	Footprint *Footprint `json:"footprint,omitempty"`
}

// Midpoint returns the instant halfway through the acquisition window.
func (p Product) Midpoint() time.Time {
	return p.AcquisitionStart.Add(p.AcquisitionEnd.Sub(p.AcquisitionStart) / 2)
}

// Duration returns the length of the acquisition window.
func (p Product) Duration() time.Duration {
	return p.AcquisitionEnd.Sub(p.AcquisitionStart)
}

// Title returns DisplayName, or ID when no name was reported.
func (p Product) Title() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// AcquisitionLabel renders the acquisition start for display, in UTC.
func (p Product) AcquisitionLabel() string {
	return p.AcquisitionStart.UTC().Format(time.RFC1123)
}

// Footprint is a polygon outer ring as ordered [lon, lat] pairs.
type Footprint struct {
	Ring [][2]float64 `json:"ring"`
}

// Bounds returns the bounding box of the ring.
// ok is false for an empty ring.
func (f *Footprint) Bounds() (BBox, bool) {
	if f == nil || len(f.Ring) == 0 {
		return BBox{}, false
	}
	b := BBox{
		MinLon: f.Ring[0][0], MaxLon: f.Ring[0][0],
		MinLat: f.Ring[0][1], MaxLat: f.Ring[0][1],
	}
	for _, pt := range f.Ring[1:] {
		b.MinLon = min(b.MinLon, pt[0])
		b.MaxLon = max(b.MaxLon, pt[0])
		b.MinLat = min(b.MinLat, pt[1])
		b.MaxLat = max(b.MaxLat, pt[1])
	}
	return b, true
}

// BBox is a geographic bounding box in degrees.
type BBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// WorldBBox covers the whole globe.
var WorldBBox = BBox{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}

// WMS130 renders the box for a WMS 1.3.0 EPSG:4326 request, which uses
// latitude-first axis order.
func (b BBox) WMS130() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

// LonLat renders the box in longitude-first order.
func (b BBox) LonLat() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}
