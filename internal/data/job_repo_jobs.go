package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/data/pgxutil"
	"github.com/linkforge/linkforge-api/internal/domain/model"
)

// Create inserts a new queued job for the given user. Row-change notifications
// are emitted by the jobs table trigger, so every write path is covered.
func (r *JobRepo) Create(ctx context.Context, userID string, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if validateErr := req.Validate(); validateErr != nil {
		return nil, validateErr
	}

	query := `
      INSERT INTO jobs(project_id, user_id, title, article_doc, status)
      VALUES ($1, $2, $3, $4, 'queued')
      RETURNING ` + jobColumns

	var job *model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, req.ProjectID, userID, req.Title, req.ArticleDoc)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		defer rows.Close()

		job, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		if err != nil {
			return fmt.Errorf("collect job: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return job, nil
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// SQL used by Claim to atomically move a queued job into processing. The status
// guard makes concurrent claims race-safe: exactly one caller sees a row.
const claimJobSQL = `
  UPDATE jobs
  SET status = 'processing',
      dispatched_at = $2,
      dispatch_attempts = dispatch_attempts + 1,
      updated_at = $2
  WHERE id = $1 AND status = 'queued'
  RETURNING ` + jobColumns

// Claim transitions a job from queued to processing via conditional update.
// Returns ErrJobNotFound for an unknown id and ErrJobNotClaimable when the
// job exists but another actor already moved it out of queued.
func (r *JobRepo) Claim(ctx context.Context, id string) (*model.Job, error) {
	now := r.timeProvider.Now().UTC()

	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, claimJobSQL, id, now)
		if err != nil {
			return fmt.Errorf("claim job: %w", err)
		}
		defer rows.Close()
		job, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.explainMissedUpdate(ctx, id, ErrJobNotClaimable)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return job, nil
}

// SQL used by Finalize. The processing guard means a job finalizes at most
// once; duplicate callbacks fall through to zero rows.
const finalizeJobSQL = `
  UPDATE jobs
  SET status = $2,
      error_message = $3,
      anchors_n = $4,
      anchors = COALESCE($5, anchors),
      original_html_url = COALESCE($6, original_html_url),
      updated_html_url = COALESCE($7, updated_html_url),
      completed_at = $8,
      updated_at = $8
  WHERE id = $1 AND status = 'processing'
  RETURNING ` + jobColumns

// Finalize transitions a processing job to a terminal status in a single
// conditional update. Returns ErrJobNotFound for an unknown id and
// ErrJobNotFinalizable when the job is not awaiting completion.
func (r *JobRepo) Finalize(ctx context.Context, id string, p core.FinalizeJobParams) (*model.Job, error) {
	if !p.Status.Terminal() {
		return nil, fmt.Errorf("finalize status must be terminal, got %q", p.Status)
	}

	now := r.timeProvider.Now().UTC()

	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, finalizeJobSQL,
			id,
			p.Status,
			p.ErrorMessage,
			p.AnchorsN,
			p.Anchors,
			p.OriginalHTMLURL,
			p.UpdatedHTMLURL,
			now,
		)
		if err != nil {
			return fmt.Errorf("finalize job: %w", err)
		}
		defer rows.Close()
		job, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.explainMissedUpdate(ctx, id, ErrJobNotFinalizable)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finalize job: %w", err)
	}
	return job, nil
}

// OverrideStatus forces a job into the given status with no state guard.
// This is the administrative escape hatch; error_message is cleared unless
// the target status is error.
func (r *JobRepo) OverrideStatus(ctx context.Context, id string, status model.JobStatus, errMsg *string) (*model.Job, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid job status: %s", status)
	}
	if status != model.JobStatusError {
		errMsg = nil
	}

	now := r.timeProvider.Now().UTC()

	query := `
      UPDATE jobs
      SET status = $2,
          error_message = $3,
          completed_at = CASE WHEN $2 IN ('done', 'error') THEN $4::timestamptz ELSE NULL END,
          updated_at = $4
      WHERE id = $1
      RETURNING ` + jobColumns

	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, id, status, errMsg, now)
		if err != nil {
			return fmt.Errorf("override job status: %w", err)
		}
		defer rows.Close()
		job, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to override job status: %w", err)
	}
	return job, nil
}

// ListQueued returns up to limit queued jobs, oldest first. This is the
// scheduler's batch selection order.
func (r *JobRepo) ListQueued(ctx context.Context, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = 'queued'
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`

	var result []*model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, limit)
		if err != nil {
			return fmt.Errorf("query queued jobs: %w", err)
		}
		defer rows.Close()

		result, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Job])
		if err != nil {
			return fmt.Errorf("collect queued jobs: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// Stats returns counts of jobs in each state, optionally scoped to a user.
func (r *JobRepo) Stats(ctx context.Context, userID *string) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'queued')     AS queued,
    count(*) FILTER (WHERE status = 'processing') AS processing,
    count(*) FILTER (WHERE status = 'done')       AS done,
    count(*) FILTER (WHERE status = 'error')      AS error
  FROM jobs
  WHERE $1::uuid IS NULL OR user_id = $1
  `, userID).Scan(
		&s.Queued,
		&s.Processing,
		&s.Done,
		&s.Error,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stats: %w", err)
	}
	return &s, nil
}

// Delete removes a terminal job by ID. Queued and processing jobs are
// protected; deleting them mid-flight would orphan the engine's callback.
func (r *JobRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM jobs
		WHERE id = $1
		  AND status IN ('done', 'error')
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return ErrJobNotFound
		}
		return fmt.Errorf("failed to re-check job after delete attempt: %w", err)
	}
	return ErrJobNotDeletable
}

// WaitForNotification blocks until a job row changes, returning the trigger's
// JSON payload. Callers should loop and treat errors as a signal to reconnect.
func (r *JobRepo) WaitForNotification(ctx context.Context) (string, error) {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	quoted := pgx.Identifier{JobChangesChannel}.Sanitize()

	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return "", fmt.Errorf("listen %s: %w", JobChangesChannel, execErr)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "UNLISTEN "+quoted)
	}()

	var payload string
	rawErr := conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		n, notifyErr := sc.Conn().WaitForNotification(ctx)
		if notifyErr != nil {
			return notifyErr
		}
		payload = n.Payload
		return nil
	})
	if rawErr != nil {
		return "", rawErr
	}
	return payload, nil
}

// explainMissedUpdate distinguishes a missing row from a lost conditional
// update after a guarded UPDATE returned no rows.
func (r *JobRepo) explainMissedUpdate(ctx context.Context, id string, stateErr error) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return ErrJobNotFound
		}
		return fmt.Errorf("failed to re-check job after missed update: %w", err)
	}
	return stateErr
}
