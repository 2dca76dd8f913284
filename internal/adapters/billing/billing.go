// Package billing wraps the Stripe API behind narrow interfaces so the usage
// service can be tested without network access.
package billing

import "context"

// EventType identifies the webhook events the service reacts to.
type EventType string

const (
	// EventInvoicePaid marks the start of a paid billing period.
	EventInvoicePaid EventType = "invoice.payment_succeeded"
	// EventSubscriptionDeleted downgrades the customer to the free plan.
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
	// EventIgnored covers every other event type; it is acknowledged and
	// dropped.
	EventIgnored EventType = ""
)

// Event is a verified webhook event reduced to the fields the service needs.
type Event struct {
	Type           EventType
	SubscriptionID string
	CustomerID     string
}

// Subscription is the slice of a Stripe subscription the service consumes.
type Subscription struct {
	ID          string
	CustomerID  string
	PriceID     string
	PeriodStart int64 // unix seconds
	PeriodEnd   int64 // unix seconds
}

// Customer is the slice of a Stripe customer the service consumes.
type Customer struct {
	ID      string
	Email   string
	Deleted bool
}

// Verifier checks a webhook payload's signature and extracts the event.
type Verifier interface {
	VerifyEvent(payload []byte, sigHeader string) (Event, error)
}

// Gateway fetches billing objects referenced by webhook events.
type Gateway interface {
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
}
