package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"focus/internal/domain/models"
	"focus/internal/domain/repositories"
)

// JobQueueRepository implements repositories.JobQueue, grounded on
// original_source/simon/storage/jobs.py's raw-SQL lease-based queue.
type JobQueueRepository struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

func NewJobQueueRepository(pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) repositories.JobQueue {
	return &JobQueueRepository{pool: pool, table: tables.Jobs, logger: logger}
}

func (r *JobQueueRepository) Enqueue(ctx context.Context, kind models.JobKind, payload map[string]interface{}, dedupeKey *string, priority, maxAttempts int) (*models.Job, error) {
	exec := GetExecutor(ctx, r.pool)

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	id := uuid.New()

	if dedupeKey != nil {
		query := fmt.Sprintf(`
			INSERT INTO %s (id, kind, payload, dedupe_key, priority, max_attempts, status, attempts, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, 'queued', 0, now(), now())
			ON CONFLICT (dedupe_key) DO NOTHING
			RETURNING id, kind, payload, dedupe_key, priority, attempts, max_attempts, status, locked_until, error_message, created_at, updated_at
		`, r.table)

		row := exec.QueryRow(ctx, query, id, string(kind), payloadJSON, *dedupeKey, priority, maxAttempts)
		job, err := scanJob(row)
		if err != nil {
			if err == pgx.ErrNoRows {
				r.logger.Debug("job deduplicated", "dedupe_key", *dedupeKey)
				return nil, nil
			}
			return nil, fmt.Errorf("enqueue job: %w", err)
		}
		return job, nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, kind, payload, priority, max_attempts, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'queued', 0, now(), now())
		RETURNING id, kind, payload, dedupe_key, priority, attempts, max_attempts, status, locked_until, error_message, created_at, updated_at
	`, r.table)

	row := exec.QueryRow(ctx, query, id, string(kind), payloadJSON, priority, maxAttempts)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

func (r *JobQueueRepository) Claim(ctx context.Context, kinds []models.JobKind, leaseSeconds int) (*models.Job, error) {
	exec := GetExecutor(ctx, r.pool)

	kindFilter := ""
	args := []interface{}{leaseSeconds}
	if len(kinds) > 0 {
		kindStrings := make([]string, len(kinds))
		for i, k := range kinds {
			kindStrings[i] = string(k)
		}
		kindFilter = "AND kind = ANY($2)"
		args = append(args, kindStrings)
	}

	query := fmt.Sprintf(`
		UPDATE %[1]s
		SET status = 'processing',
		    locked_until = now() + make_interval(secs => $1),
		    attempts = attempts + 1,
		    updated_at = now()
		WHERE id = (
			SELECT id FROM %[1]s
			WHERE status IN ('queued', 'retry')
			  AND (locked_until IS NULL OR locked_until < now())
			  %[2]s
			ORDER BY priority ASC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, payload, dedupe_key, priority, attempts, max_attempts, status, locked_until, error_message, created_at, updated_at
	`, r.table, kindFilter)

	row := exec.QueryRow(ctx, query, args...)
	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

func (r *JobQueueRepository) Complete(ctx context.Context, jobID uuid.UUID) error {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`UPDATE %s SET status = 'done', updated_at = now() WHERE id = $1`, r.table)
	_, err := exec.Exec(ctx, query, jobID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

func (r *JobQueueRepository) Fail(ctx context.Context, jobID uuid.UUID, errMessage string) error {
	exec := GetExecutor(ctx, r.pool)

	var attempts, maxAttempts int
	err := exec.QueryRow(ctx, fmt.Sprintf(`SELECT attempts, max_attempts FROM %s WHERE id = $1`, r.table), jobID).Scan(&attempts, &maxAttempts)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Warn("cannot fail job: not found", "job_id", jobID)
			return nil
		}
		return fmt.Errorf("load job for fail: %w", err)
	}

	if attempts < maxAttempts {
		backoffSeconds := backoffFor(attempts)
		query := fmt.Sprintf(`
			UPDATE %s
			SET status = 'retry', error_message = $2,
			    locked_until = now() + make_interval(secs => $3),
			    updated_at = now()
			WHERE id = $1
		`, r.table)
		if _, err := exec.Exec(ctx, query, jobID, errMessage, backoffSeconds); err != nil {
			return fmt.Errorf("fail job (retry): %w", err)
		}
		r.logger.Info("job retry scheduled", "job_id", jobID, "attempt", attempts, "backoff_seconds", backoffSeconds, "error", errMessage)
		return nil
	}

	query := fmt.Sprintf(`UPDATE %s SET status = 'failed', error_message = $2, updated_at = now() WHERE id = $1`, r.table)
	if _, err := exec.Exec(ctx, query, jobID, errMessage); err != nil {
		return fmt.Errorf("fail job (permanent): %w", err)
	}
	r.logger.Warn("job permanently failed", "job_id", jobID, "attempts", attempts, "error", errMessage)
	return nil
}

// backoffFor implements spec.md §4.3's min(2^attempts * 30s, 3600s) schedule.
func backoffFor(attempts int) int {
	backoff := 30
	for i := 0; i < attempts; i++ {
		backoff *= 2
		if backoff >= 3600 {
			return 3600
		}
	}
	if backoff > 3600 {
		return 3600
	}
	return backoff
}

func (r *JobQueueRepository) ExpireStaleLeases(ctx context.Context) (int, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'retry', locked_until = NULL, updated_at = now()
		WHERE status = 'processing' AND locked_until < now()
	`, r.table)
	tag, err := exec.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("expire stale leases: %w", err)
	}
	n := int(tag.RowsAffected())
	if n > 0 {
		r.logger.Info("expired stale job leases", "count", n)
	}
	return n, nil
}

func (r *JobQueueRepository) Stats(ctx context.Context) (map[models.JobStatus]int, error) {
	exec := GetExecutor(ctx, r.pool)
	rows, err := exec.Query(ctx, fmt.Sprintf(`SELECT status, count(*) FROM %s GROUP BY status`, r.table))
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[models.JobStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job stats: %w", err)
		}
		stats[models.JobStatus(status)] = count
	}
	return stats, rows.Err()
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var job models.Job
	var kind, status string
	var payloadJSON []byte

	if err := row.Scan(
		&job.ID, &kind, &payloadJSON, &job.DedupeKey, &job.Priority,
		&job.Attempts, &job.MaxAttempts, &status, &job.LockedUntil,
		&job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	job.Kind = models.JobKind(kind)
	job.Status = models.JobStatus(status)
	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &job.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal job payload: %w", err)
		}
	}
	return &job, nil
}
