package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/core/ports"
	"github.com/manzaspots/manza/internal/pkg/logging"
	"github.com/manzaspots/manza/internal/pkg/metrics"
)

// SweepService removes accounts that were never activated nor logged into
// within the allowed age.
type SweepService struct {
	accounts ports.AccountRepository
	maxAge   time.Duration
	settings
}

// NewSweepService creates a new SweepService. A non-positive maxAge
// falls back to domain.StaleAccountAge.
func NewSweepService(accounts ports.AccountRepository, maxAge time.Duration, opts ...Option) *SweepService {
	if maxAge <= 0 {
		maxAge = domain.StaleAccountAge
	}
	return &SweepService{accounts: accounts, maxAge: maxAge, settings: newSettings(opts)}
}

// Cutoff returns the join time before which stale accounts are removed.
func (s *SweepService) Cutoff() time.Time {
	return s.clock().Add(-s.maxAge)
}

// Preview lists up to limit accounts the next sweep would delete.
func (s *SweepService) Preview(ctx context.Context, cutoff time.Time, limit int) ([]domain.Account, error) {
	accounts, err := s.accounts.ListStale(ctx, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale accounts: %w", err)
	}
	return accounts, nil
}

// Sweep deletes every stale account joined before cutoff.
func (s *SweepService) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.accounts.DeleteStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale accounts: %w", err)
	}
	metrics.AccountsSwept.Add(float64(n))
	logging.FromContext(ctx).InfoContext(ctx, "stale accounts swept", "deleted", n, "cutoff", cutoff)
	return n, nil
}
