package mockapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/validai/runcheck/internal/store"
)

// Runner advances queued runs the way the real pipeline would: claim the
// oldest queued run, complete its operations one by one, then mark the
// run completed.
type Runner struct {
	store   *store.Store
	opDelay time.Duration
	poll    time.Duration
	logger  *slog.Logger
}

// NewRunner creates a Runner. If opDelay or pollInterval is <= 0, they
// default to 200ms and 100ms respectively.
func NewRunner(s *store.Store, opDelay, pollInterval time.Duration) *Runner {
	if opDelay <= 0 {
		opDelay = 200 * time.Millisecond
	}
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &Runner{
		store:   s,
		opDelay: opDelay,
		poll:    pollInterval,
		logger:  slog.Default(),
	}
}

// Run polls for queued runs until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := r.RunOnce(ctx)
		if err != nil {
			r.logger.Error("runner iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.poll):
		}
	}
}

// RunOnce claims and processes a single queued run.
// Returns true if a run was processed.
func (r *Runner) RunOnce(ctx context.Context) (bool, error) {
	run, err := r.store.ClaimNextQueuedRun()
	if err != nil {
		return false, fmt.Errorf("claiming run: %w", err)
	}
	if run == nil {
		return false, nil
	}

	r.logger.Info("run started", "run_id", run.ID, "processor_id", run.ProcessorID, "operations", run.TotalOperations)

	for i := 1; i <= run.TotalOperations; i++ {
		select {
		case <-ctx.Done():
			if err := r.store.FinishRun(run.ID, "failed"); err != nil {
				return true, fmt.Errorf("failing interrupted run %s: %w", run.ID, err)
			}
			return true, ctx.Err()
		case <-time.After(r.opDelay):
		}

		if err := r.store.SetRunProgress(run.ID, i, 0); err != nil {
			return true, fmt.Errorf("updating progress for run %s: %w", run.ID, err)
		}
	}

	if err := r.store.FinishRun(run.ID, "completed"); err != nil {
		return true, fmt.Errorf("completing run %s: %w", run.ID, err)
	}

	r.logger.Info("run completed", "run_id", run.ID)
	return true, nil
}
