package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/manzaspots/manza/internal/adapters/postgres"
	"github.com/manzaspots/manza/internal/core/usecases"
	"github.com/manzaspots/manza/internal/pkg/config"
	"github.com/manzaspots/manza/internal/pkg/logging"
	"github.com/manzaspots/manza/internal/workflows"
)

func main() {
	cfg, err := config.Load("manza-sweeper")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.StaleAccountSweepWorkflow)
	w.RegisterActivity(&workflows.SweepActivities{
		Sweeps: usecases.NewSweepService(
			postgres.NewAccountRepo(db),
			time.Duration(cfg.Sweep.MaxAgeHrs)*time.Hour,
		),
	})

	// Schedule the cron run. A run already scheduled under the same ID
	// is left alone.
	_, err = c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           workflows.SweepWorkflowID,
		TaskQueue:    cfg.Temporal.TaskQueue,
		CronSchedule: cfg.Sweep.Cron,
	}, workflows.StaleAccountSweepWorkflow)
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	switch {
	case errors.As(err, &started):
		slog.Info("sweep already scheduled", "workflow_id", workflows.SweepWorkflowID)
	case err != nil:
		log.Fatalf("schedule sweep: %v", err)
	default:
		slog.Info("sweep scheduled", "cron", cfg.Sweep.Cron, "max_age_hours", cfg.Sweep.MaxAgeHrs)
	}

	slog.Info("sweeper worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
