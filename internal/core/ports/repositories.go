package ports

import (
	"context"
	"time"

	"github.com/manzaspots/manza/internal/core/domain"
)

// SpotRepository persists spots and answers spatial predicates over them.
// Query methods never return soft-deleted spots; GetByID does, so callers
// can tell "deleted" from "never existed".
type SpotRepository interface {
	Create(ctx context.Context, spot *domain.Spot) error
	Update(ctx context.Context, spot *domain.Spot) error
	GetByID(ctx context.Context, id string) (*domain.Spot, error)
	WithinRadius(ctx context.Context, center domain.GeoPoint, radiusKm float64, filter domain.SpotFilter) ([]domain.Spot, error)
	WithinBounds(ctx context.Context, bounds domain.Bounds, filter domain.SpotFilter) ([]domain.Spot, error)
	List(ctx context.Context, filter domain.SpotFilter) ([]domain.Spot, error)
}

// RouteRepository persists routes.
type RouteRepository interface {
	Create(ctx context.Context, route *domain.Route) error
	Update(ctx context.Context, route *domain.Route) error
	GetByID(ctx context.Context, id string) (*domain.Route, error)
	List(ctx context.Context, filter domain.RouteFilter) ([]domain.Route, error)
	// WithinRadius returns active routes passing near center. Adapters may
	// return a superset; callers refine with per-vertex distance.
	WithinRadius(ctx context.Context, center domain.GeoPoint, radiusKm float64) ([]domain.Route, error)
}

// FavoriteRepository stores one row per (kind, user, target).
type FavoriteRepository interface {
	// Activate atomically creates or reactivates the relation and reports
	// which of the two happened, or that it was already active.
	Activate(ctx context.Context, key domain.FavoriteKey, now time.Time) (domain.FavoriteOutcome, error)
	// Deactivate fails with domain.ErrNotFound when no active row exists.
	Deactivate(ctx context.Context, key domain.FavoriteKey, now time.Time) error
	ListActive(ctx context.Context, kind domain.FavoriteKind, userID string) ([]domain.Favorite, error)
}

// AccountRepository is the user store as seen by the stale-account sweep.
type AccountRepository interface {
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.Account, error)
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}
