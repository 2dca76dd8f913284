package model

import "time"

// FreePlanPriceID is the sentinel stripe_price_id of the built-in free plan.
const FreePlanPriceID = "free"

// Plan represents a billing plan and its monthly job quota.
type Plan struct {
	ID               string    `json:"id"                 db:"id"`
	Name             string    `json:"name"               db:"name"`
	StripePriceID    string    `json:"stripe_price_id"    db:"stripe_price_id"`
	MonthlyJobsLimit int       `json:"monthly_jobs_limit" db:"monthly_jobs_limit"`
	CreatedAt        time.Time `json:"created_at"         db:"created_at"`
}
