package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/manzaspots/manza/internal/core/usecases"
	"github.com/manzaspots/manza/internal/pkg/logging"
)

// SweepActivities holds the activity implementations for the stale
// account sweep.
type SweepActivities struct {
	Sweeps *usecases.SweepService
}

// StaleCutoff returns the join time before which unverified accounts
// are removed.
func (a *SweepActivities) StaleCutoff(ctx context.Context) (time.Time, error) {
	return a.Sweeps.Cutoff(), nil
}

// PreviewStaleAccounts returns the IDs of up to limit accounts the sweep
// would delete.
func (a *SweepActivities) PreviewStaleAccounts(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	accounts, err := a.Sweeps.Preview(ctx, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("preview stale accounts: %w", err)
	}
	ids := make([]string, len(accounts))
	for i, acc := range accounts {
		ids[i] = acc.ID
	}
	logging.FromContext(ctx).InfoContext(ctx, "stale accounts found", "count", len(ids), "cutoff", cutoff)
	return ids, nil
}

// DeleteStaleAccounts removes every stale account joined before cutoff.
func (a *SweepActivities) DeleteStaleAccounts(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := a.Sweeps.Sweep(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep stale accounts: %w", err)
	}
	return n, nil
}
