package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/core/ports"
	"github.com/manzaspots/manza/internal/pkg/logging"
	"github.com/manzaspots/manza/internal/pkg/metrics"
)

// CreateSpotInput is what a user supplies when submitting a spot.
type CreateSpotInput struct {
	Name          string
	Description   string
	ThumbnailPath string
	Lat, Lon      float64
}

// UpdateSpotInput patches a spot. Nil fields are left unchanged.
type UpdateSpotInput struct {
	Name          *string
	Description   *string
	ThumbnailPath *string
	Lat, Lon      *float64
}

// SpotService handles spot submission, review and ownership rules.
type SpotService struct {
	spots ports.SpotRepository
	cache ports.CacheService
	settings
}

// NewSpotService creates a new SpotService. cache may be nil.
func NewSpotService(spots ports.SpotRepository, cache ports.CacheService, opts ...Option) *SpotService {
	return &SpotService{spots: spots, cache: cache, settings: newSettings(opts)}
}

// Create submits a new spot. It starts PENDING and inactive whatever the
// caller is.
func (s *SpotService) Create(ctx context.Context, caller domain.Caller, in CreateSpotInput) (*domain.Spot, error) {
	if !caller.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	loc, err := domain.NewGeoPoint(in.Lon, in.Lat)
	if err != nil {
		return nil, err
	}
	spot, err := domain.NewSpot(s.newID(), caller.UserID, in.Name, in.Description, loc, s.clock())
	if err != nil {
		return nil, err
	}
	spot.ThumbnailPath = in.ThumbnailPath

	if err := s.spots.Create(ctx, spot); err != nil {
		return nil, fmt.Errorf("create spot: %w", err)
	}
	s.changed(ctx, domain.EventSpotCreated, spot)
	return spot, nil
}

// Get returns a spot the caller may see. Deleted spots, and spots not yet
// public to a caller who cannot edit them, are reported as not found.
func (s *SpotService) Get(ctx context.Context, caller domain.Caller, id string) (*domain.Spot, error) {
	spot, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !spot.VisibleToPublic() && !spot.CanEdit(caller) {
		return nil, fmt.Errorf("spot %s: %w", id, domain.ErrNotFound)
	}
	return spot, nil
}

// Update applies a patch. Only the owner or staff may edit; the review
// state is left as it was.
func (s *SpotService) Update(ctx context.Context, caller domain.Caller, id string, in UpdateSpotInput) (*domain.Spot, error) {
	spot, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !spot.CanEdit(caller) {
		return nil, fmt.Errorf("%w: only the owner or staff may edit spot %s", domain.ErrPermissionDenied, id)
	}

	if in.Name != nil {
		if err := domain.ValidateSpotName(*in.Name); err != nil {
			return nil, err
		}
		spot.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		spot.Description = *in.Description
	}
	if in.ThumbnailPath != nil {
		spot.ThumbnailPath = *in.ThumbnailPath
	}
	if in.Lat != nil || in.Lon != nil {
		lat, lon := spot.Location.Lat, spot.Location.Lon
		if in.Lat != nil {
			lat = *in.Lat
		}
		if in.Lon != nil {
			lon = *in.Lon
		}
		loc, err := domain.NewGeoPoint(lon, lat)
		if err != nil {
			return nil, err
		}
		spot.Location = loc
	}
	spot.UpdatedAt = s.clock()

	if err := s.spots.Update(ctx, spot); err != nil {
		return nil, fmt.Errorf("update spot: %w", err)
	}
	s.changed(ctx, domain.EventSpotUpdated, spot)
	return spot, nil
}

// Approve publishes a spot. Re-approving a rejected spot is allowed.
func (s *SpotService) Approve(ctx context.Context, reviewer domain.Caller, id string) (*domain.Spot, error) {
	if !reviewer.Privileged {
		return nil, fmt.Errorf("%w: only staff may approve spots", domain.ErrPermissionDenied)
	}
	spot, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := spot.Approve(reviewer, s.clock()); err != nil {
		return nil, err
	}
	if err := s.spots.Update(ctx, spot); err != nil {
		return nil, fmt.Errorf("approve spot: %w", err)
	}
	metrics.ReviewDecisions.WithLabelValues(string(domain.StatusApproved)).Inc()
	logging.FromContext(ctx).InfoContext(ctx, "spot approved", "spot_id", id, "reviewer", reviewer.UserID)
	s.changed(ctx, domain.EventSpotApproved, spot)
	return spot, nil
}

// Reject hides a spot. The reason is mandatory.
func (s *SpotService) Reject(ctx context.Context, reviewer domain.Caller, id, reason string) (*domain.Spot, error) {
	if !reviewer.Privileged {
		return nil, fmt.Errorf("%w: only staff may reject spots", domain.ErrPermissionDenied)
	}
	spot, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := spot.Reject(reviewer, reason, s.clock()); err != nil {
		return nil, err
	}
	if err := s.spots.Update(ctx, spot); err != nil {
		return nil, fmt.Errorf("reject spot: %w", err)
	}
	metrics.ReviewDecisions.WithLabelValues(string(domain.StatusRejected)).Inc()
	logging.FromContext(ctx).InfoContext(ctx, "spot rejected", "spot_id", id, "reviewer", reviewer.UserID)
	s.changed(ctx, domain.EventSpotRejected, spot)
	return spot, nil
}

// Delete soft-deletes a spot. Only the owner or staff may delete.
func (s *SpotService) Delete(ctx context.Context, caller domain.Caller, id string) error {
	spot, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !spot.CanEdit(caller) {
		return fmt.Errorf("%w: only the owner or staff may delete spot %s", domain.ErrPermissionDenied, id)
	}
	now := s.clock()
	spot.SoftDelete(now)
	spot.UpdatedAt = now
	if err := s.spots.Update(ctx, spot); err != nil {
		return fmt.Errorf("delete spot: %w", err)
	}
	s.changed(ctx, domain.EventSpotDeleted, spot)
	return nil
}

// ListMine returns the caller's own active, non-deleted spots.
func (s *SpotService) ListMine(ctx context.Context, caller domain.Caller) ([]domain.Spot, error) {
	if !caller.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	active := true
	spots, err := s.spots.List(ctx, domain.SpotFilter{OwnerID: caller.UserID, Active: &active})
	if err != nil {
		return nil, fmt.Errorf("list my spots: %w", err)
	}
	return spots, nil
}

// load fetches a spot through the cache and hides soft-deleted records.
// Write paths use fetch so a lagging cache entry is never written back.
func (s *SpotService) load(ctx context.Context, id string) (*domain.Spot, error) {
	cacheKey := spotCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var spot domain.Spot
			if err := json.Unmarshal(data, &spot); err == nil {
				metrics.CacheHits.WithLabelValues("spot").Inc()
				return &spot, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("spot").Inc()
	}

	spot, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if data, err := json.Marshal(spot); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, spotCacheTTL)
		}
	}
	return spot, nil
}

// fetch reads a spot from the repository, bypassing the cache.
func (s *SpotService) fetch(ctx context.Context, id string) (*domain.Spot, error) {
	spot, err := s.spots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if spot.Deleted() {
		return nil, fmt.Errorf("spot %s: %w", id, domain.ErrNotFound)
	}
	return spot, nil
}

func (s *SpotService) changed(ctx context.Context, typ domain.EventType, spot *domain.Spot) {
	if err := s.invalidate(ctx, spot.ID); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "spot cache invalidation failed", "spot_id", spot.ID, "error", err)
	}
	loc := spot.Location
	s.publish(ctx, domain.ChangeEvent{
		Type:     typ,
		ID:       spot.ID,
		OwnerID:  spot.OwnerID,
		Location: &loc,
		Status:   string(spot.Status),
	})
}

// invalidate drops the cached copy of a spot and retires every cached
// search result, since any of them may include it.
func (s *SpotService) invalidate(ctx context.Context, id string) error {
	if s.cache == nil {
		return nil
	}
	err := s.cache.Delete(ctx, spotCacheKey(id))
	if genErr := bumpSearchGeneration(ctx, s.cache); genErr != nil && err == nil {
		err = genErr
	}
	return err
}

// HandleChange drops cached state for a spot changed elsewhere. It is
// subscribed to the change stream so writers outside this process are
// seen too.
func (s *SpotService) HandleChange(ctx context.Context, ev domain.ChangeEvent) error {
	if !strings.HasPrefix(string(ev.Type), "spot.") {
		return nil
	}
	return s.invalidate(ctx, ev.ID)
}

// spotCacheTTL is how long a single spot stays cached, in seconds.
const spotCacheTTL = 600

func spotCacheKey(id string) string { return "spots:id:" + id }
