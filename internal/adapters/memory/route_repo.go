package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/pkg/spatial"
)

// RouteRepo implements ports.RouteRepository. Paths are indexed so
// routes can be found near a point.
type RouteRepo struct {
	mu     sync.RWMutex
	routes map[string]domain.Route
	index  *spatial.Index
}

// NewRouteRepo creates an empty route repository.
func NewRouteRepo() *RouteRepo {
	return &RouteRepo{
		routes: make(map[string]domain.Route),
		index:  spatial.NewIndex(),
	}
}

// Indexed returns how many route paths are currently in the spatial index.
func (r *RouteRepo) Indexed() int { return r.index.Len() }

func (r *RouteRepo) Create(_ context.Context, route *domain.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.routes[route.ID]; ok {
		return fmt.Errorf("memory.RouteRepo.Create: route %s already exists", route.ID)
	}
	if err := r.index.Insert(route.ID, route.Path); err != nil {
		return fmt.Errorf("memory.RouteRepo.Create: %w", err)
	}
	r.routes[route.ID] = cloneRoute(*route)
	return nil
}

func (r *RouteRepo) Update(_ context.Context, route *domain.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.routes[route.ID]
	if !ok {
		return fmt.Errorf("memory.RouteRepo.Update: route %s: %w", route.ID, domain.ErrNotFound)
	}

	var err error
	switch {
	case prev.Deleted() && route.Deleted():
	case route.Deleted():
		err = r.index.Remove(route.ID)
	case prev.Deleted():
		err = r.index.Insert(route.ID, route.Path)
	case !prev.Path.Equal(route.Path):
		err = r.index.Update(route.ID, route.Path)
	}
	if err != nil {
		return fmt.Errorf("memory.RouteRepo.Update: %w", err)
	}
	r.routes[route.ID] = cloneRoute(*route)
	return nil
}

func (r *RouteRepo) GetByID(_ context.Context, id string) (*domain.Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routes[id]
	if !ok {
		return nil, fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
	}
	out := cloneRoute(rt)
	return &out, nil
}

func (r *RouteRepo) List(_ context.Context, filter domain.RouteFilter) ([]domain.Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Route, 0)
	for _, rt := range r.routes {
		if filter.Matches(&rt) {
			out = append(out, cloneRoute(rt))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *RouteRepo) WithinRadius(_ context.Context, center domain.GeoPoint, radiusKm float64) ([]domain.Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, err := r.index.QueryRadius(center, radiusKm)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Route, 0, len(ids))
	for _, id := range ids {
		if rt, ok := r.routes[id]; ok && !rt.Deleted() {
			out = append(out, cloneRoute(rt))
		}
	}
	return out, nil
}

func cloneRoute(rt domain.Route) domain.Route {
	rt.ReviewedAt = cloneTime(rt.ReviewedAt)
	rt.DeletedAt = cloneTime(rt.DeletedAt)
	return rt
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
