package odata

import (
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/logger"
)

// shape decodes one known response layout.
type shape struct {
	name string
	// key is the top-level member holding the record array.
	key    string
	decode func(raw json.RawMessage) (domain.CatalogEntry, error)
}

// shapes are tried in order; the first whose key holds an array wins.
var shapes = []shape{
	{name: "odata", key: "value", decode: decodeODataRecord},
	{name: "geojson", key: "features", decode: decodeFeature},
}

// mapResponse converts a response body into catalogue entries.
// Records that fail to decode are dropped.
func mapResponse(body []byte) ([]domain.CatalogEntry, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	for _, s := range shapes {
		raw, ok := top[s.key]
		if !ok {
			continue
		}
		var records []json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			continue
		}

		logger.Debug("catalogue response matched %s shape (%d records)", s.name, len(records))
		entries := make([]domain.CatalogEntry, 0, len(records))
		for i, rec := range records {
			entry, err := s.decode(rec)
			if err != nil {
				logger.Debug("dropping %s record %d: %v", s.name, i, err)
				continue
			}
			entries = append(entries, entry)
		}
		return entries, nil
	}

	return nil, fmt.Errorf("unrecognised response shape: expected a %q or %q array", shapes[0].key, shapes[1].key)
}

type odataProduct struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	ContentDate struct {
		Start string `json:"Start"`
		End   string `json:"End"`
	} `json:"ContentDate"`
	GeoFootprint json.RawMessage `json:"GeoFootprint"`
}

func decodeODataRecord(raw json.RawMessage) (domain.CatalogEntry, error) {
	var p odataProduct
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.CatalogEntry{}, err
	}
	return domain.CatalogEntry{
		ID:        p.ID,
		Name:      p.Name,
		Start:     p.ContentDate.Start,
		End:       p.ContentDate.End,
		Footprint: decodeGeometry(p.GeoFootprint),
	}, nil
}

type geoFeature struct {
	ID         string `json:"id"`
	Properties struct {
		Title          string `json:"title"`
		StartDate      string `json:"startDate"`
		CompletionDate string `json:"completionDate"`
	} `json:"properties"`
	Geometry json.RawMessage `json:"geometry"`
}

func decodeFeature(raw json.RawMessage) (domain.CatalogEntry, error) {
	var f geoFeature
	if err := json.Unmarshal(raw, &f); err != nil {
		return domain.CatalogEntry{}, err
	}
	return domain.CatalogEntry{
		ID:        f.ID,
		Name:      f.Properties.Title,
		Start:     f.Properties.StartDate,
		End:       f.Properties.CompletionDate,
		Footprint: decodeGeometry(f.Geometry),
	}, nil
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// decodeGeometry returns the outer ring of a Polygon, or the outer rings of
// a MultiPolygon joined in order. Anything else has no footprint.
func decodeGeometry(raw json.RawMessage) *domain.Footprint {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var g geometry
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil
	}

	var ring [][2]float64
	switch g.Type {
	case "Polygon":
		var poly [][][2]float64
		if err := json.Unmarshal(g.Coordinates, &poly); err != nil || len(poly) == 0 {
			return nil
		}
		ring = poly[0]
	case "MultiPolygon":
		var multi [][][][2]float64
		if err := json.Unmarshal(g.Coordinates, &multi); err != nil {
			return nil
		}
		for _, poly := range multi {
			if len(poly) > 0 {
				ring = append(ring, poly[0]...)
			}
		}
	default:
		return nil
	}

	if len(ring) == 0 {
		return nil
	}
	return &domain.Footprint{Ring: ring}
}
