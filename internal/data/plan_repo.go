package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/linkforge/linkforge-api/internal/data/pgxutil"
	"github.com/linkforge/linkforge-api/internal/domain/model"
)

// ErrPlanNotFound is returned when a plan is not found.
var ErrPlanNotFound = errors.New("plan not found")

// PlanRepo provides database operations for billing plans.
type PlanRepo struct {
	DB *sql.DB
}

// NewPlanRepo creates a new PlanRepo.
func NewPlanRepo(db *sql.DB) *PlanRepo {
	return &PlanRepo{DB: db}
}

const planColumns = `id, name, stripe_price_id, monthly_jobs_limit, created_at`

// GetByStripePriceID retrieves a plan by its Stripe price id.
func (r *PlanRepo) GetByStripePriceID(ctx context.Context, priceID string) (*model.Plan, error) {
	return r.getByQuery(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE stripe_price_id = $1`, "failed to get plan by price id", priceID)
}

// GetFree retrieves the built-in free plan.
func (r *PlanRepo) GetFree(ctx context.Context) (*model.Plan, error) {
	return r.GetByStripePriceID(ctx, model.FreePlanPriceID)
}

// List retrieves all plans ordered by quota.
func (r *PlanRepo) List(ctx context.Context) ([]*model.Plan, error) {
	var rowsOut []model.Plan
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+planColumns+`
			FROM plans
			ORDER BY monthly_jobs_limit ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Plan])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	res := make([]*model.Plan, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

func (r *PlanRepo) getByQuery(ctx context.Context, q, errMsg string, args ...any) (*model.Plan, error) {
	var plan model.Plan
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		plan, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Plan])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	return &plan, nil
}
