package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"focus/internal/domain/models"
)

// Worker claims and dispatches jobs against Handlers, the Go analogue of
// original_source/simon/context/worker.go's run_worker/process_pending_jobs.
type Worker struct {
	handlers     *Handlers
	pollInterval time.Duration
	logger       *slog.Logger
}

// New builds a Worker. pollInterval is the sleep between empty claim
// attempts.
func New(handlers *Handlers, pollInterval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{handlers: handlers, pollInterval: pollInterval, logger: logger}
}

// dispatch routes a claimed job to its handler.
func (w *Worker) dispatch(ctx context.Context, job *models.Job) error {
	switch job.Kind {
	case models.JobKindSessionProcess:
		return w.handlers.ProcessSessionJob(ctx, job)
	case models.JobKindTurnSummary:
		return w.handlers.ProcessTurnSummaryJob(ctx, job)
	case models.JobKindEntityExtract:
		return w.handlers.ProcessEntityExtractJob(ctx, job)
	case models.JobKindArtifactExtract:
		return w.handlers.ProcessArtifactExtractJob(ctx, job)
	case models.JobKindSessionSummary:
		return w.handlers.ProcessSessionSummaryJob(ctx, job)
	case models.JobKindSkillExtract:
		return w.handlers.ProcessSkillExtractJob(ctx, job)
	default:
		return fmt.Errorf("unknown job kind: %s", job.Kind)
	}
}

// ProcessPendingJobs drains up to maxJobs queued jobs and returns how many
// completed successfully. Useful for one-shot/embedded processing and tests.
func (w *Worker) ProcessPendingJobs(ctx context.Context, maxJobs int) (int, error) {
	if _, err := w.handlers.Jobs.ExpireStaleLeases(ctx); err != nil {
		return 0, fmt.Errorf("expire stale leases: %w", err)
	}

	processed := 0
	for i := 0; i < maxJobs; i++ {
		job, err := w.handlers.Jobs.Claim(ctx, models.AllJobKinds, models.DefaultLeaseSeconds)
		if err != nil {
			return processed, fmt.Errorf("claim job: %w", err)
		}
		if job == nil {
			break
		}

		if err := w.dispatch(ctx, job); err != nil {
			w.logger.Error("job failed", "job_id", job.ID, "kind", job.Kind, "error", err)
			if failErr := w.handlers.Jobs.Fail(ctx, job.ID, err.Error()); failErr != nil {
				return processed, fmt.Errorf("mark job failed: %w", failErr)
			}
			continue
		}
		if err := w.handlers.Jobs.Complete(ctx, job.ID); err != nil {
			return processed, fmt.Errorf("mark job complete: %w", err)
		}
		processed++
	}
	return processed, nil
}

// Run is the main daemon loop. It claims and processes jobs continuously
// until ctx is cancelled (SIGINT/SIGTERM in the cmd/worker entrypoint).
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("context worker started", "poll_interval", w.pollInterval)
	consecutiveEmpty := 0

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("context worker stopped")
			return
		default:
		}

		if _, err := w.handlers.Jobs.ExpireStaleLeases(ctx); err != nil {
			w.logger.Error("expire stale leases failed", "error", err)
			sleepOrDone(ctx, w.pollInterval)
			continue
		}

		job, err := w.handlers.Jobs.Claim(ctx, models.AllJobKinds, models.DefaultLeaseSeconds)
		if err != nil {
			w.logger.Error("claim job failed", "error", err)
			sleepOrDone(ctx, w.pollInterval)
			continue
		}
		if job == nil {
			consecutiveEmpty++
			if consecutiveEmpty%30 == 0 {
				w.logger.Debug("no jobs available", "consecutive_empty", consecutiveEmpty)
			}
			sleepOrDone(ctx, w.pollInterval)
			continue
		}

		consecutiveEmpty = 0
		if err := w.dispatch(ctx, job); err != nil {
			w.logger.Error("job failed", "job_id", job.ID, "kind", job.Kind, "error", err)
			if failErr := w.handlers.Jobs.Fail(ctx, job.ID, err.Error()); failErr != nil {
				w.logger.Error("mark job failed errored", "job_id", job.ID, "error", failErr)
			}
			continue
		}
		if err := w.handlers.Jobs.Complete(ctx, job.ID); err != nil {
			w.logger.Error("mark job complete errored", "job_id", job.ID, "error", err)
			continue
		}
		w.logger.Info("completed job", "job_id", job.ID, "kind", job.Kind)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
