// Package geo provides the polygon primitives used for neighborhood
// assignment: GeoJSON parsing, point-in-polygon tests, and ring areas.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// GeoJSON parsing errors.
var (
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
	ErrEmptyPolygon        = errors.New("polygon has no outer ring")
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Ring is a closed sequence of points. The closing point may be omitted;
// Contains treats the ring as implicitly closed.
type Ring []Point

// Polygon is an outer ring with optional holes.
type Polygon struct {
	Outer Ring   `json:"outer"`
	Holes []Ring `json:"holes,omitempty"`
}

// contains runs a ray cast from pt to the east and counts crossings.
func (r Ring) contains(pt Point) bool {
	n := len(r)
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1

	for i := 0; i < n; i++ {
		pi, pj := r[i], r[j]

		if (pi.Lat > pt.Lat) != (pj.Lat > pt.Lat) {
			x := (pj.Lon-pi.Lon)*(pt.Lat-pi.Lat)/(pj.Lat-pi.Lat) + pi.Lon
			if pt.Lon < x {
				inside = !inside
			}
		}

		j = i
	}

	return inside
}

// area returns the planar shoelace area of the ring in squared degrees.
// Only relative magnitude matters; it is used to break overlap ties.
func (r Ring) area() float64 {
	n := len(r)
	if n < 3 {
		return 0
	}

	sum := 0.0
	j := n - 1

	for i := 0; i < n; i++ {
		sum += (r[j].Lon + r[i].Lon) * (r[j].Lat - r[i].Lat)
		j = i
	}

	return math.Abs(sum) / 2
}

// Contains reports whether pt lies inside the polygon, excluding holes.
func (p Polygon) Contains(pt Point) bool {
	if !p.Outer.contains(pt) {
		return false
	}

	for _, hole := range p.Holes {
		if hole.contains(pt) {
			return false
		}
	}

	return true
}

// Area returns the outer ring area minus hole areas, in squared degrees.
func (p Polygon) Area() float64 {
	a := p.Outer.area()
	for _, hole := range p.Holes {
		a -= hole.area()
	}

	return a
}

// geoJSONGeometry mirrors the geometry member of a GeoJSON feature.
type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func ringFromCoords(coords [][]float64) Ring {
	ring := make(Ring, 0, len(coords))
	for _, pair := range coords {
		if len(pair) < 2 {
			continue
		}
		// GeoJSON order is [longitude, latitude]
		ring = append(ring, Point{Lon: pair[0], Lat: pair[1]})
	}

	return ring
}

func polygonFromRings(rings [][][]float64) (Polygon, error) {
	if len(rings) == 0 {
		return Polygon{}, ErrEmptyPolygon
	}

	poly := Polygon{Outer: ringFromCoords(rings[0])}
	for _, hole := range rings[1:] {
		poly.Holes = append(poly.Holes, ringFromCoords(hole))
	}

	if len(poly.Outer) < 3 {
		return Polygon{}, ErrEmptyPolygon
	}

	return poly, nil
}

// ParseGeometry decodes a GeoJSON Polygon or MultiPolygon geometry into
// one or more Polygon values.
func ParseGeometry(data []byte) ([]Polygon, error) {
	var geom geoJSONGeometry
	if err := json.Unmarshal(data, &geom); err != nil {
		return nil, fmt.Errorf("failed to parse geometry: %w", err)
	}

	switch geom.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(geom.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("failed to parse polygon coordinates: %w", err)
		}

		poly, err := polygonFromRings(rings)
		if err != nil {
			return nil, err
		}

		return []Polygon{poly}, nil

	case "MultiPolygon":
		var multi [][][][]float64
		if err := json.Unmarshal(geom.Coordinates, &multi); err != nil {
			return nil, fmt.Errorf("failed to parse multipolygon coordinates: %w", err)
		}

		polys := make([]Polygon, 0, len(multi))
		for _, rings := range multi {
			poly, err := polygonFromRings(rings)
			if err != nil {
				return nil, err
			}
			polys = append(polys, poly)
		}

		if len(polys) == 0 {
			return nil, ErrEmptyPolygon
		}

		return polys, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, geom.Type)
	}
}
