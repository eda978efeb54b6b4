package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Difficulty is a catalog entry describing how demanding a route is.
type Difficulty struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	HexColor string `json:"hex_color"`
}

// TravelMode is a catalog entry describing how a route is traversed.
type TravelMode struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Difficulties is the seeded difficulty catalog.
var Difficulties = []Difficulty{
	{Key: "easy", Name: "Easy", HexColor: "#4CAF50"},
	{Key: "medium", Name: "Medium", HexColor: "#FFC107"},
	{Key: "hard", Name: "Hard", HexColor: "#F44336"},
}

// TravelModes is the seeded travel mode catalog.
var TravelModes = []TravelMode{
	{Key: "walking", Name: "Walking"},
	{Key: "cycling", Name: "Cycling"},
}

// NormalizeDifficulty returns the catalog key matching v, case-insensitively.
func NormalizeDifficulty(v string) (string, error) {
	for _, d := range Difficulties {
		if strings.EqualFold(d.Key, v) {
			return d.Key, nil
		}
	}
	return "", fmt.Errorf("%w: unknown difficulty %q", ErrValidation, v)
}

// NormalizeTravelMode returns the catalog key matching v, case-insensitively.
func NormalizeTravelMode(v string) (string, error) {
	for _, m := range TravelModes {
		if strings.EqualFold(m.Key, v) {
			return m.Key, nil
		}
	}
	return "", fmt.Errorf("%w: unknown travel mode %q", ErrValidation, v)
}

// Route is a user-drawn path attached to a spot.
type Route struct {
	ID          string  `json:"id"`
	OwnerID     string  `json:"owner_id"`
	SpotID      string  `json:"spot_id"`
	Difficulty  string  `json:"difficulty"`
	TravelMode  string  `json:"travel_mode"`
	Description string  `json:"description,omitempty"`
	Path        GeoPath `json:"path"`
	DistanceKm  float64 `json:"distance_km"`
	Lifecycle
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetPath replaces the geometry and recomputes the derived distance.
// It is the only writer of DistanceKm.
func (r *Route) SetPath(p GeoPath) {
	r.Path = p
	r.DistanceKm = ComputeDistanceKm(p)
}

// RouteFilter narrows route listings. Empty fields match everything.
type RouteFilter struct {
	OwnerID    string
	SpotID     string
	Difficulty string
	TravelMode string
}

// Matches applies the filter to one route. Soft-deleted routes never match.
func (f RouteFilter) Matches(r *Route) bool {
	if r.Deleted() || !r.Active {
		return false
	}
	if f.OwnerID != "" && r.OwnerID != f.OwnerID {
		return false
	}
	if f.SpotID != "" && r.SpotID != f.SpotID {
		return false
	}
	if f.Difficulty != "" && !strings.EqualFold(r.Difficulty, f.Difficulty) {
		return false
	}
	if f.TravelMode != "" && !strings.EqualFold(r.TravelMode, f.TravelMode) {
		return false
	}
	return true
}

// ComputeDistanceKm measures a path on a local equidistant projection and
// rounds to two decimals. Paths with fewer than two points measure 0.
func ComputeDistanceKm(p GeoPath) float64 {
	if p.Len() < 2 {
		return 0
	}
	return math.Round(p.ProjectedLengthMeters()/1000*100) / 100
}

// CanEdit reports whether c may modify the route.
func (r *Route) CanEdit(c Caller) bool {
	return c.Privileged || c.Owns(r.OwnerID)
}
