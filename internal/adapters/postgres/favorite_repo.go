package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/manzaspots/manza/internal/core/domain"
)

// FavoriteRepo implements ports.FavoriteRepository on the favorites table,
// which carries UNIQUE (kind, user_id, target_id).
type FavoriteRepo struct {
	db *DB
}

func NewFavoriteRepo(db *DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

// Activate upserts the relation in one statement so concurrent adds for
// the same triple serialize on the unique index. The conditional DO UPDATE
// skips rows that are already active, which then return no row.
func (r *FavoriteRepo) Activate(ctx context.Context, key domain.FavoriteKey, now time.Time) (domain.FavoriteOutcome, error) {
	var inserted bool
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO favorites (kind, user_id, target_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $4)
		ON CONFLICT (kind, user_id, target_id) DO UPDATE
		SET is_active = TRUE, deleted_at = NULL, updated_at = EXCLUDED.updated_at
		WHERE NOT favorites.is_active
		RETURNING (xmax = 0)
	`, string(key.Kind), key.UserID, key.TargetID, now).Scan(&inserted)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.FavoriteAlreadyFavorited, nil
	case err != nil:
		return "", fmt.Errorf("activate favorite %s: %w", key, mapErr(err))
	case inserted:
		return domain.FavoriteAdded, nil
	default:
		return domain.FavoriteReactivated, nil
	}
}

func (r *FavoriteRepo) Deactivate(ctx context.Context, key domain.FavoriteKey, now time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE favorites
		SET is_active = FALSE, deleted_at = $4, updated_at = $4
		WHERE kind = $1 AND user_id = $2 AND target_id = $3 AND is_active
	`, string(key.Kind), key.UserID, key.TargetID, now)
	if err != nil {
		return fmt.Errorf("deactivate favorite %s: %w", key, mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("favorite %s: %w", key, domain.ErrNotFound)
	}
	return nil
}

func (r *FavoriteRepo) ListActive(ctx context.Context, kind domain.FavoriteKind, userID string) ([]domain.Favorite, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT kind, user_id, target_id, is_active, created_at, updated_at, deleted_at
		FROM favorites
		WHERE kind = $1 AND user_id = $2 AND is_active
		ORDER BY created_at, target_id
	`, string(kind), userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	favs := make([]domain.Favorite, 0)
	for rows.Next() {
		var f domain.Favorite
		var k string
		if err := rows.Scan(&k, &f.UserID, &f.TargetID, &f.Active, &f.CreatedAt, &f.UpdatedAt, &f.DeletedAt); err != nil {
			return nil, mapErr(err)
		}
		f.Kind = domain.FavoriteKind(k)
		favs = append(favs, f)
	}
	return favs, mapErr(rows.Err())
}
