package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/manzaspots/manza/internal/core/domain"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

const staleAccountWhere = `NOT is_active AND last_login IS NULL AND date_joined < $1`

func (r *AccountRepo) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.Account, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, email, is_active, last_login, date_joined
		FROM accounts
		WHERE `+staleAccountWhere+`
		ORDER BY date_joined
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.Active, &a.LastLogin, &a.DateJoined); err != nil {
			return nil, mapErr(err)
		}
		accounts = append(accounts, a)
	}
	return accounts, mapErr(rows.Err())
}

func (r *AccountRepo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM accounts WHERE `+staleAccountWhere, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale accounts: %w", mapErr(err))
	}
	return tag.RowsAffected(), nil
}
