package model

import "time"

// Usage represents a user's job quota for one billing period.
// Rows are unique per (user_id, billing_period_start).
type Usage struct {
	ID                   string    `json:"id"                               db:"id"`
	UserID               string    `json:"user_id"                         db:"user_id"`
	PlanID               string    `json:"plan_id"                          db:"plan_id"`
	JobsUsed             int       `json:"jobs_used"                        db:"jobs_used"`
	JobsLimit            int       `json:"jobs_limit"                       db:"jobs_limit"`
	BillingPeriodStart   time.Time `json:"billing_period_start"             db:"billing_period_start"`
	BillingPeriodEnd     time.Time `json:"billing_period_end"               db:"billing_period_end"`
	StripeSubscriptionID *string   `json:"stripe_subscription_id,omitempty" db:"stripe_subscription_id"`
	UpdatedAt            time.Time `json:"updated_at"                       db:"updated_at"`
}

// Remaining returns how many jobs the period still allows.
func (u Usage) Remaining() int {
	if u.JobsLimit <= u.JobsUsed {
		return 0
	}
	return u.JobsLimit - u.JobsUsed
}

// UpsertUsageParams carries the values written when a billing event lands.
type UpsertUsageParams struct {
	UserID               string
	PlanID               string
	JobsLimit            int
	BillingPeriodStart   time.Time
	BillingPeriodEnd     time.Time
	StripeSubscriptionID *string
}

// CalendarMonth returns the first day of t's month and the first day of the next
// month, in UTC. Used for free-plan periods, which follow calendar months.
func CalendarMonth(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}
