package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/core/ports"
	"github.com/manzaspots/manza/internal/pkg/metrics"
	"github.com/manzaspots/manza/internal/pkg/telemetry"
)

// SearchKind says which branch of Search answered a query.
type SearchKind string

const (
	SearchRadius SearchKind = "radius"
	SearchBounds SearchKind = "bbox"
	SearchList   SearchKind = "list"
)

// SearchQuery is the union of every search parameter a caller may send.
// Nil fields were not supplied.
type SearchQuery struct {
	Lat, Lng                   *float64
	RadiusKm                   *float64
	SWLat, SWLng, NELat, NELng *float64
	Filter                     domain.SpotFilter
}

// SearchResult holds either ranked radius hits or an unordered spot set.
type SearchResult struct {
	Kind   SearchKind
	Ranked []domain.SpotWithDistance
	Spots  []domain.Spot
}

// Len returns the number of spots in the result.
func (r SearchResult) Len() int {
	if r.Kind == SearchRadius {
		return len(r.Ranked)
	}
	return len(r.Spots)
}

// SearchService answers proximity and viewport queries over spots.
type SearchService struct {
	spots ports.SpotRepository
	cache ports.CacheService
	settings
}

// NewSearchService creates a new SearchService. cache may be nil.
func NewSearchService(spots ports.SpotRepository, cache ports.CacheService, opts ...Option) *SearchService {
	return &SearchService{spots: spots, cache: cache, settings: newSettings(opts)}
}

// Search dispatches a query. A center (lat and lng) selects a radius
// search and any bounding-box parameters are then ignored; otherwise a
// full set of corners selects a bounding-box search; with neither the
// filtered spots are listed.
func (s *SearchService) Search(ctx context.Context, caller domain.Caller, q SearchQuery) (SearchResult, error) {
	hasCenter := q.Lat != nil || q.Lng != nil
	hasBox := q.SWLat != nil || q.SWLng != nil || q.NELat != nil || q.NELng != nil

	switch {
	case hasCenter:
		if q.Lat == nil || q.Lng == nil {
			return SearchResult{}, fmt.Errorf("%w: radius search needs both lat and lng", domain.ErrInvalidQuery)
		}
		hits, err := s.SearchByRadius(ctx, caller, *q.Lat, *q.Lng, q.RadiusKm, q.Filter)
		return SearchResult{Kind: SearchRadius, Ranked: hits}, err

	case q.RadiusKm != nil:
		return SearchResult{}, fmt.Errorf("%w: radius given without lat and lng", domain.ErrInvalidQuery)

	case hasBox:
		var missing []string
		for name, v := range map[string]*float64{"sw_lat": q.SWLat, "sw_lng": q.SWLng, "ne_lat": q.NELat, "ne_lng": q.NELng} {
			if v == nil {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return SearchResult{}, fmt.Errorf("%w: bounding box missing %s", domain.ErrInvalidQuery, strings.Join(missing, ", "))
		}
		spots, err := s.SearchByBoundingBox(ctx, caller, *q.SWLat, *q.SWLng, *q.NELat, *q.NELng, q.Filter)
		return SearchResult{Kind: SearchBounds, Spots: spots}, err
	}

	spots, err := s.List(ctx, caller, q.Filter)
	return SearchResult{Kind: SearchList, Spots: spots}, err
}

// SearchByRadius returns the visible spots within radiusKm of (lat, lng),
// nearest first, ties broken by ID. A nil radius means the default.
func (s *SearchService) SearchByRadius(ctx context.Context, caller domain.Caller, lat, lng float64, radiusKm *float64, filter domain.SpotFilter) (hits []domain.SpotWithDistance, err error) {
	r := s.defaultRadiusKm
	if radiusKm != nil {
		r = *radiusKm
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSearchRadius, trace.WithAttributes(
		attribute.Float64("search.lat", lat),
		attribute.Float64("search.lng", lng),
		attribute.Float64("search.radius_km", r),
		attribute.Bool("caller.privileged", caller.Privileged),
	))
	defer func() { endSearch(span, SearchRadius, len(hits), err) }()

	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return nil, fmt.Errorf("%w: radius must be a positive number of kilometers, got %v", domain.ErrInvalidQuery, r)
	}
	if s.maxRadiusKm > 0 && r > s.maxRadiusKm {
		return nil, fmt.Errorf("%w: radius %v km exceeds the %v km limit", domain.ErrInvalidQuery, r, s.maxRadiusKm)
	}
	center, err := domain.NewGeoPoint(lng, lat)
	if err != nil {
		return nil, err
	}
	filter = filter.ForCaller(caller)

	cacheKey := ""
	if gen, ok := s.searchGeneration(ctx, caller); ok {
		cacheKey = fmt.Sprintf("spots:radius:%s:%.5f:%.5f:%.3f:%s", gen, lat, lng, r, strings.ToLower(filter.NameContains))
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var cached []domain.SpotWithDistance
			if err := json.Unmarshal(data, &cached); err == nil {
				metrics.CacheHits.WithLabelValues("search_radius").Inc()
				return cached, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("search_radius").Inc()
	}

	spots, err := s.spots.WithinRadius(ctx, center, r, filter)
	if err != nil {
		return nil, fmt.Errorf("search by radius: %w", err)
	}

	hits = make([]domain.SpotWithDistance, 0, len(spots))
	for i := range spots {
		sp := spots[i]
		if !filter.Matches(&sp) {
			continue
		}
		d := center.DistanceMeters(sp.Location) / 1000
		if d > r {
			continue
		}
		hits = append(hits, domain.SpotWithDistance{Spot: sp, DistanceKm: d})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].DistanceKm != hits[j].DistanceKm {
			return hits[i].DistanceKm < hits[j].DistanceKm
		}
		return hits[i].ID < hits[j].ID
	})

	if cacheKey != "" {
		if data, err := json.Marshal(hits); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}
	return hits, nil
}

// searchGenerationKey holds the token that namespaces cached search
// results. Any spot write replaces it, so results cached before the write
// are never read again and expire on their own.
const (
	searchGenerationKey = "spots:search-gen"
	searchGenerationTTL = 24 * 60 * 60
)

// searchGeneration returns the current search cache namespace, minting one
// if none is stored. ok is false when results must not be cached.
func (s *SearchService) searchGeneration(ctx context.Context, caller domain.Caller) (string, bool) {
	if s.cache == nil || s.cacheTTL <= 0 || caller.Privileged {
		return "", false
	}
	if data, err := s.cache.Get(ctx, searchGenerationKey); err == nil && len(data) > 0 {
		return string(data), true
	}
	gen := uuid.NewString()
	if err := s.cache.Set(ctx, searchGenerationKey, []byte(gen), searchGenerationTTL); err != nil {
		return "", false
	}
	return gen, true
}

func bumpSearchGeneration(ctx context.Context, cache ports.CacheService) error {
	return cache.Set(ctx, searchGenerationKey, []byte(uuid.NewString()), searchGenerationTTL)
}

// SearchByBoundingBox returns the visible spots inside the box. The
// result carries no ordering guarantee.
func (s *SearchService) SearchByBoundingBox(ctx context.Context, caller domain.Caller, swLat, swLng, neLat, neLng float64, filter domain.SpotFilter) (out []domain.Spot, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSearchBounds, trace.WithAttributes(
		attribute.Float64Slice("search.bbox", []float64{swLat, swLng, neLat, neLng}),
		attribute.Bool("caller.privileged", caller.Privileged),
	))
	defer func() { endSearch(span, SearchBounds, len(out), err) }()

	sw := domain.GeoPoint{Lat: swLat, Lon: swLng}
	ne := domain.GeoPoint{Lat: neLat, Lon: neLng}
	bounds, err := domain.NewBounds(sw, ne)
	if err != nil {
		return nil, err
	}
	filter = filter.ForCaller(caller)

	spots, err := s.spots.WithinBounds(ctx, bounds, filter)
	if err != nil {
		return nil, fmt.Errorf("search by bounding box: %w", err)
	}

	out = spots[:0]
	for i := range spots {
		if filter.Matches(&spots[i]) && bounds.Contains(spots[i].Location) {
			out = append(out, spots[i])
		}
	}
	return out, nil
}

// List returns the visible spots matching filter with no spatial predicate.
func (s *SearchService) List(ctx context.Context, caller domain.Caller, filter domain.SpotFilter) (out []domain.Spot, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSearchList)
	defer func() { endSearch(span, SearchList, len(out), err) }()

	out, err = s.spots.List(ctx, filter.ForCaller(caller))
	if err != nil {
		return nil, fmt.Errorf("list spots: %w", err)
	}
	return out, nil
}

func endSearch(span trace.Span, kind SearchKind, n int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("search.results", n))
		metrics.SearchResults.WithLabelValues(string(kind)).Observe(float64(n))
	}
	metrics.SearchesTotal.WithLabelValues(string(kind), outcome).Inc()
	span.End()
}
