package geospatial

import "math"

// Rect is an axis-aligned lat/lon rectangle that never crosses ±180.
type Rect struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// pad absorbs float error at the edge of the search circle.
const pad = 1e-9

// BoundingBox returns a box enclosing every point within radiusMeters of
// (lat, lon) on the sphere. Longitudes may fall outside [-180, 180] when
// the circle crosses the antimeridian; use SearchRects to split them.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	angular := radiusMeters / EarthRadiusMeters
	latDelta := toDeg(angular) + pad

	minLat = math.Max(lat-latDelta, -90)
	maxLat = math.Min(lat+latDelta, 90)

	// The circle covers a pole: every longitude qualifies.
	if minLat <= -90 || maxLat >= 90 || angular >= math.Pi/2 {
		return minLat, -180, maxLat, 180
	}

	ratio := math.Sin(angular) / math.Cos(toRad(lat))
	if ratio >= 1 {
		return minLat, -180, maxLat, 180
	}
	lonDelta := toDeg(math.Asin(ratio)) + pad
	return minLat, lon - lonDelta, maxLat, lon + lonDelta
}

// SearchRects returns one or two rectangles covering the search circle,
// splitting at the antimeridian.
func SearchRects(lat, lon, radiusMeters float64) []Rect {
	minLat, minLon, maxLat, maxLon := BoundingBox(lat, lon, radiusMeters)
	switch {
	case minLon < -180:
		return []Rect{
			{MinLat: minLat, MinLon: -180, MaxLat: maxLat, MaxLon: maxLon},
			{MinLat: minLat, MinLon: minLon + 360, MaxLat: maxLat, MaxLon: 180},
		}
	case maxLon > 180:
		return []Rect{
			{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: 180},
			{MinLat: minLat, MinLon: -180, MaxLat: maxLat, MaxLon: maxLon - 360},
		}
	}
	return []Rect{{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}}
}
