package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/manzaspots/manza/internal/core/domain"
)

// FavoriteRepo implements ports.FavoriteRepository. The map is keyed by
// the unique (kind, user, target) triple and every check-and-set runs
// under one mutex, so concurrent adds on a pair cannot both create a row.
type FavoriteRepo struct {
	mu   sync.Mutex
	rows map[domain.FavoriteKey]*domain.Favorite
}

// NewFavoriteRepo creates an empty favorite repository.
func NewFavoriteRepo() *FavoriteRepo {
	return &FavoriteRepo{rows: make(map[domain.FavoriteKey]*domain.Favorite)}
}

func (r *FavoriteRepo) Activate(_ context.Context, key domain.FavoriteKey, now time.Time) (domain.FavoriteOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[key]
	switch {
	case !ok:
		r.rows[key] = &domain.Favorite{
			Kind:      key.Kind,
			UserID:    key.UserID,
			TargetID:  key.TargetID,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return domain.FavoriteAdded, nil
	case !row.Active:
		row.Active = true
		row.DeletedAt = nil
		row.UpdatedAt = now
		return domain.FavoriteReactivated, nil
	default:
		return domain.FavoriteAlreadyFavorited, nil
	}
}

func (r *FavoriteRepo) Deactivate(_ context.Context, key domain.FavoriteKey, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[key]
	if !ok || !row.Active {
		return fmt.Errorf("favorite %s: %w", key, domain.ErrNotFound)
	}
	row.Active = false
	row.DeletedAt = &now
	row.UpdatedAt = now
	return nil
}

func (r *FavoriteRepo) ListActive(_ context.Context, kind domain.FavoriteKind, userID string) ([]domain.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Favorite, 0)
	for k, row := range r.rows {
		if k.Kind == kind && k.UserID == userID && row.Active {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].TargetID < out[j].TargetID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Rows returns the total number of relation rows, active or not.
func (r *FavoriteRepo) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}
