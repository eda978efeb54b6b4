package domain

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/manzaspots/manza/internal/pkg/geospatial"
)

// GeoPoint represents a geographic coordinate (WGS 84, SRID 4326).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewGeoPoint validates and builds a point. Argument order follows the
// (longitude, latitude) convention used by PostGIS and GeoJSON.
func NewGeoPoint(lon, lat float64) (GeoPoint, error) {
	p := GeoPoint{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

// Validate checks the coordinate ranges.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidGeometry, p.Lat)
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidGeometry, p.Lon)
	}
	return nil
}

// DistanceMeters returns the great-circle distance to q.
func (p GeoPoint) DistanceMeters(q GeoPoint) float64 {
	return geospatial.Haversine(p.Lat, p.Lon, q.Lat, q.Lon)
}

// Vertices lets a point be indexed like any other geometry.
func (p GeoPoint) Vertices() []GeoPoint {
	return []GeoPoint{p}
}

// GeoPath is an ordered sequence of at least two points, start to end.
// The zero value is an empty path; build one with NewGeoPath.
type GeoPath struct {
	points []GeoPoint
}

// NewGeoPath validates every point and collapses consecutive duplicates.
// A path left with fewer than two distinct points is rejected.
func NewGeoPath(points []GeoPoint) (GeoPath, error) {
	out := make([]GeoPoint, 0, len(points))
	for i, p := range points {
		if err := p.Validate(); err != nil {
			return GeoPath{}, fmt.Errorf("point %d: %w", i, err)
		}
		if n := len(out); n > 0 && out[n-1] == p {
			continue
		}
		out = append(out, p)
	}
	if len(out) < 2 {
		return GeoPath{}, fmt.Errorf("%w: path needs at least 2 distinct points, got %d", ErrInvalidGeometry, len(out))
	}
	return GeoPath{points: out}, nil
}

// Points returns a copy of the path's vertices.
func (g GeoPath) Points() []GeoPoint {
	out := make([]GeoPoint, len(g.points))
	copy(out, g.points)
	return out
}

// Vertices implements the indexable geometry contract.
func (g GeoPath) Vertices() []GeoPoint { return g.Points() }

// Len returns the number of vertices.
func (g GeoPath) Len() int { return len(g.points) }

// Equal reports whether both paths have the same vertices in the same order.
func (g GeoPath) Equal(o GeoPath) bool {
	if len(g.points) != len(o.points) {
		return false
	}
	for i := range g.points {
		if g.points[i] != o.points[i] {
			return false
		}
	}
	return true
}

// LengthMeters sums the great-circle length of every segment.
func (g GeoPath) LengthMeters() float64 {
	var total float64
	for i := 1; i < len(g.points); i++ {
		total += g.points[i-1].DistanceMeters(g.points[i])
	}
	return total
}

// ProjectedLengthMeters sums segment lengths on a local equidistant plane.
func (g GeoPath) ProjectedLengthMeters() float64 {
	var total float64
	for i := 1; i < len(g.points); i++ {
		a, b := g.points[i-1], g.points[i]
		total += geospatial.PlanarDistance(a.Lat, a.Lon, b.Lat, b.Lon)
	}
	return total
}

type lineStringJSON struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// MarshalJSON encodes the path as a GeoJSON LineString.
func (g GeoPath) MarshalJSON() ([]byte, error) {
	coords := make([][2]float64, len(g.points))
	for i, p := range g.points {
		coords[i] = [2]float64{p.Lon, p.Lat}
	}
	return json.Marshal(lineStringJSON{Type: "LineString", Coordinates: coords})
}

// UnmarshalJSON decodes a GeoJSON LineString, enforcing path invariants.
func (g *GeoPath) UnmarshalJSON(data []byte) error {
	var raw lineStringJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if raw.Type != "" && raw.Type != "LineString" {
		return fmt.Errorf("%w: expected LineString, got %q", ErrInvalidGeometry, raw.Type)
	}
	pts := make([]GeoPoint, len(raw.Coordinates))
	for i, c := range raw.Coordinates {
		pts[i] = GeoPoint{Lon: c[0], Lat: c[1]}
	}
	path, err := NewGeoPath(pts)
	if err != nil {
		return err
	}
	*g = path
	return nil
}

// Bounds represents a geographic bounding box. Boxes crossing the
// antimeridian are not representable.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// NewBounds builds a box from its south-west and north-east corners.
func NewBounds(sw, ne GeoPoint) (Bounds, error) {
	if err := sw.Validate(); err != nil {
		return Bounds{}, fmt.Errorf("south-west corner: %w", err)
	}
	if err := ne.Validate(); err != nil {
		return Bounds{}, fmt.Errorf("north-east corner: %w", err)
	}
	if sw.Lat > ne.Lat {
		return Bounds{}, fmt.Errorf("%w: sw_lat %v is north of ne_lat %v", ErrInvalidQuery, sw.Lat, ne.Lat)
	}
	if sw.Lon > ne.Lon {
		return Bounds{}, fmt.Errorf("%w: sw_lng %v is east of ne_lng %v", ErrInvalidQuery, sw.Lon, ne.Lon)
	}
	return Bounds{MinLat: sw.Lat, MinLon: sw.Lon, MaxLat: ne.Lat, MaxLon: ne.Lon}, nil
}

// Contains reports whether p lies inside the box, boundary included.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}
