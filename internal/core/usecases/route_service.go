package usecases

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/core/ports"
	"github.com/manzaspots/manza/internal/pkg/metrics"
	"github.com/manzaspots/manza/internal/pkg/telemetry"
)

// CreateRouteInput is what a user supplies when drawing a route. There is
// no distance field: distance is always derived from Path.
type CreateRouteInput struct {
	SpotID      string
	Difficulty  string
	TravelMode  string
	Description string
	Path        domain.GeoPath
}

// UpdateRouteInput patches a route. Nil fields are left unchanged.
type UpdateRouteInput struct {
	Difficulty  *string
	TravelMode  *string
	Description *string
	Path        *domain.GeoPath
}

// RouteService handles route writes and the derived route metric.
type RouteService struct {
	routes ports.RouteRepository
	spots  ports.SpotRepository
	settings
}

// NewRouteService creates a new RouteService.
func NewRouteService(routes ports.RouteRepository, spots ports.SpotRepository, opts ...Option) *RouteService {
	return &RouteService{routes: routes, spots: spots, settings: newSettings(opts)}
}

// Create stores a new route attached to an existing spot. The route is
// active immediately and its distance is computed from the path.
func (s *RouteService) Create(ctx context.Context, caller domain.Caller, in CreateRouteInput) (*domain.Route, error) {
	if !caller.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	if in.Path.Len() < 2 {
		return nil, fmt.Errorf("%w: route path needs at least 2 points", domain.ErrInvalidGeometry)
	}
	difficulty, err := domain.NormalizeDifficulty(in.Difficulty)
	if err != nil {
		return nil, err
	}
	mode, err := domain.NormalizeTravelMode(in.TravelMode)
	if err != nil {
		return nil, err
	}
	if err := s.requireSpot(ctx, in.SpotID); err != nil {
		return nil, err
	}

	now := s.clock()
	route := &domain.Route{
		ID:          s.newID(),
		OwnerID:     caller.UserID,
		SpotID:      in.SpotID,
		Difficulty:  difficulty,
		TravelMode:  mode,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	route.Active = true
	s.measure(ctx, route, in.Path)

	if err := s.routes.Create(ctx, route); err != nil {
		return nil, fmt.Errorf("create route: %w", err)
	}
	s.changed(ctx, domain.EventRouteCreated, route)
	return route, nil
}

// ReplacePath swaps the route geometry and recomputes its distance.
func (s *RouteService) ReplacePath(ctx context.Context, caller domain.Caller, id string, path domain.GeoPath) (*domain.Route, error) {
	return s.Update(ctx, caller, id, UpdateRouteInput{Path: &path})
}

// Update applies a patch. Only the owner or staff may edit.
func (s *RouteService) Update(ctx context.Context, caller domain.Caller, id string, in UpdateRouteInput) (*domain.Route, error) {
	route, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !route.CanEdit(caller) {
		return nil, fmt.Errorf("%w: only the owner or staff may edit route %s", domain.ErrPermissionDenied, id)
	}

	if in.Difficulty != nil {
		if route.Difficulty, err = domain.NormalizeDifficulty(*in.Difficulty); err != nil {
			return nil, err
		}
	}
	if in.TravelMode != nil {
		if route.TravelMode, err = domain.NormalizeTravelMode(*in.TravelMode); err != nil {
			return nil, err
		}
	}
	if in.Description != nil {
		route.Description = *in.Description
	}
	if in.Path != nil {
		if in.Path.Len() < 2 {
			return nil, fmt.Errorf("%w: route path needs at least 2 points", domain.ErrInvalidGeometry)
		}
		s.measure(ctx, route, *in.Path)
	}
	route.UpdatedAt = s.clock()

	if err := s.routes.Update(ctx, route); err != nil {
		return nil, fmt.Errorf("update route: %w", err)
	}
	s.changed(ctx, domain.EventRouteUpdated, route)
	return route, nil
}

// Delete soft-deletes a route. Deleted routes cannot be restored.
func (s *RouteService) Delete(ctx context.Context, caller domain.Caller, id string) error {
	route, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !route.CanEdit(caller) {
		return fmt.Errorf("%w: only the owner or staff may delete route %s", domain.ErrPermissionDenied, id)
	}
	now := s.clock()
	route.SoftDelete(now)
	route.UpdatedAt = now
	if err := s.routes.Update(ctx, route); err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	s.changed(ctx, domain.EventRouteDeleted, route)
	return nil
}

// Get returns a live route.
func (s *RouteService) Get(ctx context.Context, id string) (*domain.Route, error) {
	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if route.Deleted() {
		return nil, fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
	}
	return route, nil
}

// List returns live routes matching filter. Difficulty and travel mode
// keys match case-insensitively.
func (s *RouteService) List(ctx context.Context, filter domain.RouteFilter) ([]domain.Route, error) {
	routes, err := s.routes.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

// Nearby returns live routes with at least one vertex within radiusKm of
// (lat, lng), closest vertex first, ties by ID.
func (s *RouteService) Nearby(ctx context.Context, lat, lng float64, radiusKm *float64) ([]domain.Route, error) {
	r := s.defaultRadiusKm
	if radiusKm != nil {
		r = *radiusKm
	}
	if !(r > 0) {
		return nil, fmt.Errorf("%w: radius must be a positive number of kilometers, got %v", domain.ErrInvalidQuery, r)
	}
	if s.maxRadiusKm > 0 && r > s.maxRadiusKm {
		return nil, fmt.Errorf("%w: radius %v km exceeds the %v km limit", domain.ErrInvalidQuery, r, s.maxRadiusKm)
	}
	center, err := domain.NewGeoPoint(lng, lat)
	if err != nil {
		return nil, err
	}

	candidates, err := s.routes.WithinRadius(ctx, center, r)
	if err != nil {
		return nil, fmt.Errorf("routes near point: %w", err)
	}

	type ranked struct {
		route domain.Route
		km    float64
	}
	hits := make([]ranked, 0, len(candidates))
	for _, rt := range candidates {
		if rt.Deleted() {
			continue
		}
		best := -1.0
		for _, v := range rt.Path.Points() {
			if d := center.DistanceMeters(v) / 1000; best < 0 || d < best {
				best = d
			}
		}
		if best >= 0 && best <= r {
			hits = append(hits, ranked{route: rt, km: best})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].km != hits[j].km {
			return hits[i].km < hits[j].km
		}
		return hits[i].route.ID < hits[j].route.ID
	})

	out := make([]domain.Route, len(hits))
	for i, h := range hits {
		out[i] = h.route
	}
	return out, nil
}

func (s *RouteService) measure(ctx context.Context, route *domain.Route, path domain.GeoPath) {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanRouteMetric, trace.WithAttributes(
		attribute.Int("route.points", path.Len()),
	))
	route.SetPath(path)
	span.SetAttributes(attribute.Float64("route.distance_km", route.DistanceKm))
	span.End()
	metrics.RouteDistanceKm.Observe(route.DistanceKm)
}

func (s *RouteService) requireSpot(ctx context.Context, spotID string) error {
	if spotID == "" {
		return fmt.Errorf("%w: spot_id is required", domain.ErrValidation)
	}
	spot, err := s.spots.GetByID(ctx, spotID)
	if err != nil {
		return err
	}
	if spot.Deleted() {
		return fmt.Errorf("spot %s: %w", spotID, domain.ErrNotFound)
	}
	return nil
}

func (s *RouteService) changed(ctx context.Context, typ domain.EventType, route *domain.Route) {
	var start *domain.GeoPoint
	if pts := route.Path.Points(); len(pts) > 0 {
		start = &pts[0]
	}
	s.publish(ctx, domain.ChangeEvent{
		Type:     typ,
		ID:       route.ID,
		OwnerID:  route.OwnerID,
		Location: start,
	})
}
