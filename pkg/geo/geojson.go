package geo

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFeatureCollection is returned when the document is not a GeoJSON
// FeatureCollection.
var ErrNotFeatureCollection = errors.New("not a GeoJSON FeatureCollection")

// Feature is one decoded GeoJSON feature: its properties plus the
// polygons of its geometry.
type Feature struct {
	Properties map[string]any
	Polygons   []Polygon
}

// Property returns the first non-empty string value among the given
// property keys.
func (f Feature) Property(keys ...string) string {
	for _, key := range keys {
		if v, ok := f.Properties[key].(string); ok && v != "" {
			return v
		}
	}

	return ""
}

// LargestPolygon returns the polygon with the biggest outer area. For
// single-polygon geometries this is just the polygon itself.
func (f Feature) LargestPolygon() (Polygon, bool) {
	if len(f.Polygons) == 0 {
		return Polygon{}, false
	}

	best := f.Polygons[0]
	for _, poly := range f.Polygons[1:] {
		if poly.Area() > best.Area() {
			best = poly
		}
	}

	return best, true
}

type geoJSONFeature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// ParseFeatureCollection decodes a GeoJSON FeatureCollection. Features
// with non-polygonal geometries are skipped rather than failing the
// whole document.
func ParseFeatureCollection(data []byte) ([]Feature, error) {
	var coll geoJSONCollection
	if err := json.Unmarshal(data, &coll); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	if coll.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: %q", ErrNotFeatureCollection, coll.Type)
	}

	features := make([]Feature, 0, len(coll.Features))

	for _, raw := range coll.Features {
		if len(raw.Geometry) == 0 {
			continue
		}

		polys, err := ParseGeometry(raw.Geometry)
		if err != nil {
			if errors.Is(err, ErrUnsupportedGeometry) {
				continue
			}

			return nil, err
		}

		features = append(features, Feature{
			Properties: raw.Properties,
			Polygons:   polys,
		})
	}

	return features, nil
}
