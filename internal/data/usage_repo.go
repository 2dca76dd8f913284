package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/linkforge/linkforge-api/internal/data/pgxutil"
	"github.com/linkforge/linkforge-api/internal/domain/model"
)

var (
	// ErrUsageNotFound is returned when no usage row covers the requested period.
	ErrUsageNotFound = errors.New("usage record not found")
	// ErrQuotaExhausted is returned when a guarded increment finds no headroom.
	ErrQuotaExhausted = errors.New("job quota exhausted for the current period")
)

// UsageRepo provides database operations for per-period job quotas.
type UsageRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewUsageRepo creates a new UsageRepo.
func NewUsageRepo(db *sql.DB, cfg RepoConfig) *UsageRepo {
	return &UsageRepo{DB: db, timeProvider: cfg.timeProvider()}
}

const usageColumns = `
  id,
  user_id,
  plan_id,
  jobs_used,
  jobs_limit,
  billing_period_start,
  billing_period_end,
  stripe_subscription_id,
  updated_at
`

// Upsert writes the usage row for (user, period start). Replayed billing
// events land on the same row, which makes webhook handling idempotent.
// The counter resets to zero: a new period always starts fresh.
func (r *UsageRepo) Upsert(ctx context.Context, p model.UpsertUsageParams) (*model.Usage, error) {
	if p.UserID == "" {
		return nil, errors.New("user id is required")
	}
	if p.PlanID == "" {
		return nil, errors.New("plan id is required")
	}
	if !p.BillingPeriodEnd.After(p.BillingPeriodStart) {
		return nil, errors.New("billing period end must be after start")
	}

	now := r.timeProvider.Now().UTC()

	query := `
      INSERT INTO usage (
        user_id, plan_id, jobs_used, jobs_limit,
        billing_period_start, billing_period_end,
        stripe_subscription_id, updated_at
      ) VALUES ($1, $2, 0, $3, $4, $5, $6, $7)
      ON CONFLICT (user_id, billing_period_start) DO UPDATE
      SET plan_id = EXCLUDED.plan_id,
          jobs_used = 0,
          jobs_limit = EXCLUDED.jobs_limit,
          billing_period_end = EXCLUDED.billing_period_end,
          stripe_subscription_id = EXCLUDED.stripe_subscription_id,
          updated_at = EXCLUDED.updated_at
      RETURNING ` + usageColumns

	var usage model.Usage
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query,
			p.UserID,
			p.PlanID,
			p.JobsLimit,
			p.BillingPeriodStart.UTC(),
			p.BillingPeriodEnd.UTC(),
			p.StripeSubscriptionID,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		usage, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Usage])
		return err
	}); err != nil {
		return nil, fmt.Errorf("upsert usage: %w", err)
	}
	return &usage, nil
}

// GetCurrent returns the usage row covering the given instant. When several
// rows overlap (plan change mid-month), the latest period start wins.
func (r *UsageRepo) GetCurrent(ctx context.Context, userID string, at time.Time) (*model.Usage, error) {
	query := `
		SELECT ` + usageColumns + `
		FROM usage
		WHERE user_id = $1
		  AND billing_period_start <= $2
		  AND billing_period_end > $2
		ORDER BY billing_period_start DESC
		LIMIT 1
	`

	var usage model.Usage
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, userID, at.UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		usage, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Usage])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUsageNotFound
		}
		return nil, fmt.Errorf("get current usage: %w", err)
	}
	return &usage, nil
}

// ConsumeQuota atomically takes one unit of quota from the row covering the
// given instant. The jobs_used < jobs_limit guard in the UPDATE means the
// counter can never pass the limit, regardless of concurrency.
func (r *UsageRepo) ConsumeQuota(ctx context.Context, userID string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE usage
		SET jobs_used = jobs_used + 1,
		    updated_at = $3
		WHERE id = (
			SELECT id FROM usage
			WHERE user_id = $1
			  AND billing_period_start <= $2
			  AND billing_period_end > $2
			ORDER BY billing_period_start DESC
			LIMIT 1
		)
		  AND jobs_used < jobs_limit
	`, userID, at.UTC(), r.timeProvider.Now().UTC())
	if err != nil {
		return fmt.Errorf("consume quota: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume quota rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	if _, err := r.GetCurrent(ctx, userID, at); err != nil {
		if errors.Is(err, ErrUsageNotFound) {
			return ErrUsageNotFound
		}
		return fmt.Errorf("re-check usage after consume attempt: %w", err)
	}
	return ErrQuotaExhausted
}
