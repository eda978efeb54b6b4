package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// SweepWorkflowID is the fixed ID of the cron sweep, so only one
// schedule exists per namespace.
const SweepWorkflowID = "stale-account-sweep"

// previewLimit caps how many candidate IDs the workflow records.
const previewLimit = 100

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Cutoff    time.Time
	Previewed []string
	Deleted   int64
}

// StaleAccountSweepWorkflow deletes accounts that were never activated
// nor logged into. When nothing qualifies the delete step is skipped.
func StaleAccountSweepWorkflow(ctx workflow.Context) (SweepResult, error) {
	logger := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 10 * time.Second,
			MaximumAttempts: 3,
		},
	})

	var acts *SweepActivities
	var res SweepResult

	if err := workflow.ExecuteActivity(ctx, acts.StaleCutoff).Get(ctx, &res.Cutoff); err != nil {
		return res, err
	}

	if err := workflow.ExecuteActivity(ctx, acts.PreviewStaleAccounts, res.Cutoff, previewLimit).Get(ctx, &res.Previewed); err != nil {
		return res, err
	}
	if len(res.Previewed) == 0 {
		logger.Info("no stale accounts", "cutoff", res.Cutoff)
		return res, nil
	}

	if err := workflow.ExecuteActivity(ctx, acts.DeleteStaleAccounts, res.Cutoff).Get(ctx, &res.Deleted); err != nil {
		return res, err
	}

	logger.Info("stale account sweep finished", "deleted", res.Deleted, "cutoff", res.Cutoff)
	return res, nil
}
