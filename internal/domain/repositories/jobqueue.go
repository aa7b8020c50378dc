package repositories

import (
	"context"

	"github.com/google/uuid"

	"focus/internal/domain/models"
)

// JobQueue is the durable, deduplicating, leased queue of spec.md §4.3.
type JobQueue interface {
	// Enqueue inserts a job. If dedupeKey is non-nil and a live row with
	// that key already exists, it returns (nil, nil) — a dedup conflict
	// is not an error.
	Enqueue(ctx context.Context, kind models.JobKind, payload map[string]interface{}, dedupeKey *string, priority, maxAttempts int) (*models.Job, error)

	// Claim atomically selects and locks the single best candidate job
	// among kinds (nil means all kinds), returning nil if none is
	// available.
	Claim(ctx context.Context, kinds []models.JobKind, leaseSeconds int) (*models.Job, error)

	// Complete marks a job done.
	Complete(ctx context.Context, jobID uuid.UUID) error

	// Fail transitions a job to retry (with backoff) or to failed,
	// depending on its attempt count.
	Fail(ctx context.Context, jobID uuid.UUID, errMessage string) error

	// ExpireStaleLeases resets processing rows whose lease has expired
	// back to retry, returning the count reset.
	ExpireStaleLeases(ctx context.Context) (int, error)

	// Stats returns job counts grouped by status.
	Stats(ctx context.Context) (map[models.JobStatus]int, error)
}
