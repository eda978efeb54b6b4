// Package memory provides in-process repositories backed by the spatial
// R-tree index. It suits single-instance deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/pkg/spatial"
)

// SpotRepo implements ports.SpotRepository.
type SpotRepo struct {
	mu    sync.RWMutex
	spots map[string]domain.Spot
	index *spatial.Index
}

// NewSpotRepo creates an empty spot repository.
func NewSpotRepo() *SpotRepo {
	return &SpotRepo{
		spots: make(map[string]domain.Spot),
		index: spatial.NewIndex(),
	}
}

// Indexed returns how many spots are currently in the spatial index.
func (r *SpotRepo) Indexed() int { return r.index.Len() }

func (r *SpotRepo) Create(_ context.Context, spot *domain.Spot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.spots[spot.ID]; ok {
		return fmt.Errorf("memory.SpotRepo.Create: spot %s already exists", spot.ID)
	}
	if !spot.Deleted() {
		if err := r.index.Insert(spot.ID, spot.Location); err != nil {
			return fmt.Errorf("memory.SpotRepo.Create: %w", err)
		}
	}
	r.spots[spot.ID] = cloneSpot(*spot)
	return nil
}

func (r *SpotRepo) Update(_ context.Context, spot *domain.Spot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.spots[spot.ID]
	if !ok {
		return fmt.Errorf("memory.SpotRepo.Update: spot %s: %w", spot.ID, domain.ErrNotFound)
	}

	var err error
	switch {
	case prev.Deleted() && spot.Deleted():
	case spot.Deleted():
		err = r.index.Remove(spot.ID)
	case prev.Deleted():
		err = r.index.Insert(spot.ID, spot.Location)
	case prev.Location != spot.Location:
		err = r.index.Update(spot.ID, spot.Location)
	}
	if err != nil {
		return fmt.Errorf("memory.SpotRepo.Update: %w", err)
	}
	r.spots[spot.ID] = cloneSpot(*spot)
	return nil
}

func (r *SpotRepo) GetByID(_ context.Context, id string) (*domain.Spot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.spots[id]
	if !ok {
		return nil, fmt.Errorf("spot %s: %w", id, domain.ErrNotFound)
	}
	out := cloneSpot(s)
	return &out, nil
}

func (r *SpotRepo) WithinRadius(_ context.Context, center domain.GeoPoint, radiusKm float64, filter domain.SpotFilter) ([]domain.Spot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, err := r.index.QueryRadius(center, radiusKm)
	if err != nil {
		return nil, err
	}
	return r.collect(ids, filter), nil
}

func (r *SpotRepo) WithinBounds(_ context.Context, b domain.Bounds, filter domain.SpotFilter) ([]domain.Spot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, err := r.index.QueryBoundingBox(
		domain.GeoPoint{Lat: b.MinLat, Lon: b.MinLon},
		domain.GeoPoint{Lat: b.MaxLat, Lon: b.MaxLon},
	)
	if err != nil {
		return nil, err
	}
	return r.collect(ids, filter), nil
}

// List returns every non-deleted spot matching filter, newest first.
func (r *SpotRepo) List(_ context.Context, filter domain.SpotFilter) ([]domain.Spot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Spot, 0)
	for _, s := range r.spots {
		if filter.Matches(&s) {
			out = append(out, cloneSpot(s))
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

// collect must run under r.mu.
func (r *SpotRepo) collect(ids []string, filter domain.SpotFilter) []domain.Spot {
	out := make([]domain.Spot, 0, len(ids))
	for _, id := range ids {
		s, ok := r.spots[id]
		if ok && filter.Matches(&s) {
			out = append(out, cloneSpot(s))
		}
	}
	return out
}

func cloneSpot(s domain.Spot) domain.Spot {
	s.ReviewedAt = cloneTime(s.ReviewedAt)
	s.DeletedAt = cloneTime(s.DeletedAt)
	return s
}
