package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/data/pgxutil"
)

// Advisory lock namespace for reaper operations.
// Using two-arg pg_try_advisory_xact_lock(major, minor) for proper namespacing.
// Major key 1000 is reserved for linkforge reaper operations.
const (
	advisoryLockReaperMajor         = 1000
	advisoryLockReaperStaleJobs     = 1 // minor key for ReclaimStaleProcessing
	advisoryLockReaperDeleteInvites = 2 // minor key for DeleteExpiredInvites
)

// ReclaimStaleProcessing recovers processing jobs whose dispatch is older than
// MaxAge: jobs with remaining attempts go back to queued, exhausted jobs move
// to error. Processes up to BatchSize jobs per call to prevent long locks.
// Uses an advisory lock so concurrent reaper instances never double-touch.
func (r *JobRepo) ReclaimStaleProcessing(
	ctx context.Context,
	params core.ReclaimStaleJobsParams,
) (core.ReclaimStaleResult, error) {
	if params.MaxAge <= 0 {
		return core.ReclaimStaleResult{}, errors.New("max age must be greater than zero")
	}
	if params.MaxAttempts <= 0 {
		return core.ReclaimStaleResult{}, errors.New("max attempts must be greater than zero")
	}
	if params.BatchSize <= 0 {
		return core.ReclaimStaleResult{}, errors.New("batch size must be greater than zero")
	}

	var result core.ReclaimStaleResult
	err := pgxutil.WithPgxTx(ctx, r.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var locked bool
		if err := tx.QueryRow(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, advisoryLockReaperStaleJobs).Scan(&locked); err != nil {
			return fmt.Errorf("acquire advisory lock: %w", err)
		}
		if !locked {
			result = core.ReclaimStaleResult{}
			return nil
		}

		currentTime := r.timeProvider.Now()
		cutoffTime := currentTime.Add(-params.MaxAge)

		requeued, err := tx.Exec(ctx, `
			UPDATE jobs
			SET status = 'queued',
				dispatched_at = NULL,
				updated_at = $1
			WHERE id IN (
				SELECT id FROM jobs
				WHERE status = 'processing'
				  AND dispatched_at < $2
				  AND dispatch_attempts < $3
				ORDER BY dispatched_at
				LIMIT $4
				FOR UPDATE SKIP LOCKED
			)
		`, currentTime.UTC(), cutoffTime.UTC(), params.MaxAttempts, params.BatchSize)
		if err != nil {
			return fmt.Errorf("requeue stale processing jobs: %w", err)
		}

		errored, err := tx.Exec(ctx, `
			UPDATE jobs
			SET status = 'error',
				error_message = 'processing timed out',
				completed_at = $1,
				updated_at = $1
			WHERE id IN (
				SELECT id FROM jobs
				WHERE status = 'processing'
				  AND dispatched_at < $2
				  AND dispatch_attempts >= $3
				ORDER BY dispatched_at
				LIMIT $4
				FOR UPDATE SKIP LOCKED
			)
		`, currentTime.UTC(), cutoffTime.UTC(), params.MaxAttempts, params.BatchSize)
		if err != nil {
			return fmt.Errorf("fail exhausted processing jobs: %w", err)
		}

		result.Requeued = requeued.RowsAffected()
		result.Errored = errored.RowsAffected()
		return nil
	})
	if err != nil {
		return core.ReclaimStaleResult{}, err
	}
	return result, nil
}
