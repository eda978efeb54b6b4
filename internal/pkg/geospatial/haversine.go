package geospatial

import "math"

const earthRadiusKm = 6371.0

// EarthRadiusMeters is the mean spherical radius every metric here uses.
const EarthRadiusMeters = earthRadiusKm * 1000

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// PlanarDistance returns the length in meters of a segment projected onto
// an equirectangular plane centred on the segment's mean latitude.
func PlanarDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLon := lon2 - lon1
	if dLon > 180 {
		dLon -= 360
	} else if dLon < -180 {
		dLon += 360
	}
	x := toRad(dLon) * math.Cos(toRad((lat1+lat2)/2))
	y := toRad(lat2 - lat1)
	return math.Hypot(x, y) * EarthRadiusMeters
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
