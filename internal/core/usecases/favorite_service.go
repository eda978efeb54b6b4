package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/core/ports"
	"github.com/manzaspots/manza/internal/pkg/metrics"
	"github.com/manzaspots/manza/internal/pkg/telemetry"
)

// FavoriteItem is an active favorite together with its target record.
type FavoriteItem struct {
	domain.Favorite
	Spot  *domain.Spot  `json:"spot,omitempty"`
	Route *domain.Route `json:"route,omitempty"`
}

// FavoriteService maintains the one-row-per-pair favorite relations.
type FavoriteService struct {
	favorites ports.FavoriteRepository
	spots     ports.SpotRepository
	routes    ports.RouteRepository
	settings
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(favorites ports.FavoriteRepository, spots ports.SpotRepository, routes ports.RouteRepository, opts ...Option) *FavoriteService {
	return &FavoriteService{favorites: favorites, spots: spots, routes: routes, settings: newSettings(opts)}
}

// AddFavoriteIdempotent favorites a target; adding an active favorite
// again succeeds with FavoriteAlreadyFavorited.
func (s *FavoriteService) AddFavoriteIdempotent(ctx context.Context, caller domain.Caller, kind domain.FavoriteKind, targetID string) (domain.FavoriteOutcome, error) {
	return s.ToggleFavorite(ctx, caller, kind, targetID, false)
}

// AddFavoriteStrict favorites a target; adding an active favorite again
// fails with domain.ErrDuplicate.
func (s *FavoriteService) AddFavoriteStrict(ctx context.Context, caller domain.Caller, kind domain.FavoriteKind, targetID string) (domain.FavoriteOutcome, error) {
	return s.ToggleFavorite(ctx, caller, kind, targetID, true)
}

// ToggleFavorite creates or reactivates the (caller, target) relation.
// strict selects how an already active relation is reported.
func (s *FavoriteService) ToggleFavorite(ctx context.Context, caller domain.Caller, kind domain.FavoriteKind, targetID string, strict bool) (domain.FavoriteOutcome, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanFavorite)
	defer span.End()

	if !caller.Authenticated() {
		return "", domain.ErrUnauthenticated
	}
	if err := s.requireTarget(ctx, caller, kind, targetID); err != nil {
		return "", err
	}

	key := domain.FavoriteKey{Kind: kind, UserID: caller.UserID, TargetID: targetID}
	outcome, err := s.favorites.Activate(ctx, key, s.clock())
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("favorite %s %s: %w", kind, targetID, err)
	}
	metrics.FavoriteChanges.WithLabelValues(string(kind), string(outcome)).Inc()

	if strict && outcome == domain.FavoriteAlreadyFavorited {
		return "", fmt.Errorf("%s %s: %w", kind, targetID, domain.ErrDuplicate)
	}
	return outcome, nil
}

// RemoveFavorite deactivates an active relation.
func (s *FavoriteService) RemoveFavorite(ctx context.Context, caller domain.Caller, kind domain.FavoriteKind, targetID string) error {
	if !caller.Authenticated() {
		return domain.ErrUnauthenticated
	}
	key := domain.FavoriteKey{Kind: kind, UserID: caller.UserID, TargetID: targetID}
	if err := s.favorites.Deactivate(ctx, key, s.clock()); err != nil {
		return err
	}
	metrics.FavoriteChanges.WithLabelValues(string(kind), "removed").Inc()
	return nil
}

// ListFavorites returns the caller's active favorites of kind whose
// target still exists.
func (s *FavoriteService) ListFavorites(ctx context.Context, caller domain.Caller, kind domain.FavoriteKind) ([]FavoriteItem, error) {
	if !caller.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	favs, err := s.favorites.ListActive(ctx, kind, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	out := make([]FavoriteItem, 0, len(favs))
	for _, f := range favs {
		item := FavoriteItem{Favorite: f}
		switch kind {
		case domain.FavoriteSpot:
			spot, err := s.spots.GetByID(ctx, f.TargetID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("load favorite spot %s: %w", f.TargetID, err)
			}
			if spot.Deleted() {
				continue
			}
			item.Spot = spot
		case domain.FavoriteRoute:
			route, err := s.routes.GetByID(ctx, f.TargetID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("load favorite route %s: %w", f.TargetID, err)
			}
			if route.Deleted() {
				continue
			}
			item.Route = route
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *FavoriteService) requireTarget(ctx context.Context, caller domain.Caller, kind domain.FavoriteKind, id string) error {
	switch kind {
	case domain.FavoriteSpot:
		spot, err := s.spots.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if spot.Deleted() || (!spot.VisibleToPublic() && !spot.CanEdit(caller)) {
			return fmt.Errorf("spot %s: %w", id, domain.ErrNotFound)
		}
	case domain.FavoriteRoute:
		route, err := s.routes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if route.Deleted() {
			return fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
		}
	default:
		return fmt.Errorf("%w: unknown favorite kind %q", domain.ErrValidation, kind)
	}
	return nil
}
