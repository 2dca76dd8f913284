package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v81"
	stripeclient "github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	apperrors "github.com/linkforge/linkforge-api/internal/errors"
)

// StripeVerifier verifies webhook signatures with a shared endpoint secret.
type StripeVerifier struct {
	webhookSecret string
}

// NewStripeVerifier creates a verifier for the given endpoint secret.
func NewStripeVerifier(webhookSecret string) (*StripeVerifier, error) {
	if webhookSecret == "" {
		return nil, errors.New("webhook secret is required")
	}
	return &StripeVerifier{webhookSecret: webhookSecret}, nil
}

// VerifyEvent validates the Stripe-Signature header against the payload and
// reduces the event to the fields the usage service consumes. Unknown event
// types come back as EventIgnored with a nil error.
func (v *StripeVerifier) VerifyEvent(payload []byte, sigHeader string) (Event, error) {
	ev, err := webhook.ConstructEvent(payload, sigHeader, v.webhookSecret)
	if err != nil {
		return Event{}, apperrors.Wrap(err, apperrors.ErrCodeSignature, "webhook signature verification failed")
	}

	switch EventType(ev.Type) {
	case EventInvoicePaid:
		var invoice stripe.Invoice
		if unmarshalErr := json.Unmarshal(ev.Data.Raw, &invoice); unmarshalErr != nil {
			return Event{}, fmt.Errorf("decode invoice event: %w", unmarshalErr)
		}
		out := Event{Type: EventInvoicePaid}
		if invoice.Subscription != nil {
			out.SubscriptionID = invoice.Subscription.ID
		}
		if invoice.Customer != nil {
			out.CustomerID = invoice.Customer.ID
		}
		return out, nil

	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if unmarshalErr := json.Unmarshal(ev.Data.Raw, &sub); unmarshalErr != nil {
			return Event{}, fmt.Errorf("decode subscription event: %w", unmarshalErr)
		}
		out := Event{Type: EventSubscriptionDeleted, SubscriptionID: sub.ID}
		if sub.Customer != nil {
			out.CustomerID = sub.Customer.ID
		}
		return out, nil

	default:
		return Event{Type: EventIgnored}, nil
	}
}

// StripeGateway fetches subscriptions and customers from the Stripe API.
type StripeGateway struct {
	api *stripeclient.API
}

// NewStripeGateway creates a gateway authenticated with the given API key.
func NewStripeGateway(apiKey string) (*StripeGateway, error) {
	if apiKey == "" {
		return nil, errors.New("stripe api key is required")
	}
	return &StripeGateway{api: stripeclient.New(apiKey, nil)}, nil
}

// GetSubscription retrieves a subscription by ID.
func (g *StripeGateway) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "retrieve subscription")
	}

	out := &Subscription{
		ID:          sub.ID,
		PeriodStart: sub.CurrentPeriodStart,
		PeriodEnd:   sub.CurrentPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
	}
	return out, nil
}

// GetCustomer retrieves a customer by ID.
func (g *StripeGateway) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := g.api.Customers.Get(id, params)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "retrieve customer")
	}

	return &Customer{
		ID:      cust.ID,
		Email:   cust.Email,
		Deleted: cust.Deleted,
	}, nil
}
