package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkforge/linkforge-api/internal/adapters/billing"
	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/data"
	"github.com/linkforge/linkforge-api/internal/domain/model"
	apperrors "github.com/linkforge/linkforge-api/internal/errors"
)

// UsageServiceOptions groups dependencies for UsageService.
type UsageServiceOptions struct {
	Usage    core.UsageRepository // Required: usage repository
	Users    core.UserRepository  // Required: user repository
	Plans    core.PlanRepository  // Required: plan repository
	Verifier billing.Verifier     // Optional: webhook signature verification
	Gateway  billing.Gateway      // Optional: billing provider lookups
	Logger   *slog.Logger         // Optional: structured logger
	Now      func() time.Time     // Optional: clock override for tests
}

// UsageService keeps per-period job quotas in sync with the billing provider.
//
// Billing webhooks are processed at-least-once: replays land on the same
// (user, period start) row. Events that reference unknown customers or prices
// are logged and skipped rather than failed, so the provider doesn't retry
// them forever.
type UsageService struct {
	usage    core.UsageRepository
	users    core.UserRepository
	plans    core.PlanRepository
	verifier billing.Verifier
	gateway  billing.Gateway
	logger   *slog.Logger
	now      func() time.Time
}

// NewUsageService constructs a new UsageService.
func NewUsageService(opts UsageServiceOptions) (*UsageService, error) {
	if opts.Usage == nil {
		return nil, errors.New("UsageRepository is required")
	}
	if opts.Users == nil {
		return nil, errors.New("UserRepository is required")
	}
	if opts.Plans == nil {
		return nil, errors.New("PlanRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "usage_service")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &UsageService{
		usage:    opts.Usage,
		users:    opts.Users,
		plans:    opts.Plans,
		verifier: opts.Verifier,
		gateway:  opts.Gateway,
		logger:   logger,
		now:      now,
	}, nil
}

// MustNewUsageService constructs a new UsageService and panics on error.
func MustNewUsageService(opts UsageServiceOptions) *UsageService {
	svc, err := NewUsageService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create UsageService: %v", err))
	}
	return svc
}

// ProcessBillingEvent verifies and applies one billing webhook delivery.
// A nil return means the delivery is consumed; events we don't recognise or
// can't attribute are consumed too, since retrying them can never succeed.
func (s *UsageService) ProcessBillingEvent(ctx context.Context, payload []byte, sigHeader string) error {
	if s.verifier == nil || s.gateway == nil {
		return apperrors.Upstream("billing is not configured")
	}

	event, err := s.verifier.VerifyEvent(payload, sigHeader)
	if err != nil {
		return err
	}

	switch event.Type {
	case billing.EventInvoicePaid:
		return s.applyPaidInvoice(ctx, event)
	case billing.EventSubscriptionDeleted:
		return s.applyCancellation(ctx, event)
	default:
		if s.logger != nil {
			s.logger.DebugContext(ctx, "ignoring billing event", "type", event.Type)
		}
		return nil
	}
}

// applyPaidInvoice resets the user's quota row for the subscription's new period.
func (s *UsageService) applyPaidInvoice(ctx context.Context, event billing.Event) error {
	// One-off invoices carry no subscription and can never map to a quota
	// period; retrying them can never succeed either.
	if event.SubscriptionID == "" {
		s.skip(ctx, "invoice has no subscription", "customer_id", event.CustomerID)
		return nil
	}

	sub, err := s.gateway.GetSubscription(ctx, event.SubscriptionID)
	if err != nil {
		return fmt.Errorf("look up subscription %s: %w", event.SubscriptionID, err)
	}

	customer, err := s.gateway.GetCustomer(ctx, sub.CustomerID)
	if err != nil {
		return fmt.Errorf("look up customer %s: %w", sub.CustomerID, err)
	}
	if customer.Deleted || customer.Email == "" {
		s.skip(ctx, "customer deleted or has no email", "customer_id", sub.CustomerID)
		return nil
	}

	user, err := s.users.GetByEmail(ctx, customer.Email)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			s.skip(ctx, "no user for billing customer", "email", customer.Email)
			return nil
		}
		return fmt.Errorf("look up user by email: %w", err)
	}

	plan, err := s.plans.GetByStripePriceID(ctx, sub.PriceID)
	if err != nil {
		if errors.Is(err, data.ErrPlanNotFound) {
			s.skip(ctx, "no plan for price", "price_id", sub.PriceID)
			return nil
		}
		return fmt.Errorf("look up plan by price: %w", err)
	}

	subID := sub.ID
	_, err = s.usage.Upsert(ctx, model.UpsertUsageParams{
		UserID:               user.ID,
		PlanID:               plan.ID,
		JobsLimit:            plan.MonthlyJobsLimit,
		BillingPeriodStart:   time.Unix(sub.PeriodStart, 0).UTC(),
		BillingPeriodEnd:     time.Unix(sub.PeriodEnd, 0).UTC(),
		StripeSubscriptionID: &subID,
	})
	if err != nil {
		return fmt.Errorf("reset usage for user %s: %w", user.ID, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "usage period reset from paid invoice",
			"user_id", user.ID,
			"plan", plan.Name,
			"subscription_id", sub.ID,
		)
	}
	return nil
}

// applyCancellation drops the user back onto the free plan for the current
// calendar month.
func (s *UsageService) applyCancellation(ctx context.Context, event billing.Event) error {
	if event.CustomerID == "" {
		s.skip(ctx, "cancellation has no customer", "subscription_id", event.SubscriptionID)
		return nil
	}

	customer, err := s.gateway.GetCustomer(ctx, event.CustomerID)
	if err != nil {
		return fmt.Errorf("look up customer %s: %w", event.CustomerID, err)
	}
	if customer.Deleted || customer.Email == "" {
		s.skip(ctx, "customer deleted or has no email", "customer_id", event.CustomerID)
		return nil
	}

	user, err := s.users.GetByEmail(ctx, customer.Email)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			s.skip(ctx, "no user for billing customer", "email", customer.Email)
			return nil
		}
		return fmt.Errorf("look up user by email: %w", err)
	}

	free, err := s.plans.GetFree(ctx)
	if err != nil {
		return fmt.Errorf("look up free plan: %w", err)
	}

	start, end := model.CalendarMonth(s.now())
	_, err = s.usage.Upsert(ctx, model.UpsertUsageParams{
		UserID:             user.ID,
		PlanID:             free.ID,
		JobsLimit:          free.MonthlyJobsLimit,
		BillingPeriodStart: start,
		BillingPeriodEnd:   end,
	})
	if err != nil {
		return fmt.Errorf("reset usage for user %s: %w", user.ID, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "user downgraded to free plan", "user_id", user.ID)
	}
	return nil
}

// GetUsage returns the user's quota for the current period. Users without a
// covering row are shown a synthesized free-plan view; the row itself is only
// created when quota is first consumed.
func (s *UsageService) GetUsage(ctx context.Context, userID string) (*model.Usage, error) {
	usage, err := s.usage.GetCurrent(ctx, userID, s.now())
	if err == nil {
		return usage, nil
	}
	if !errors.Is(err, data.ErrUsageNotFound) {
		return nil, fmt.Errorf("get usage for user %s: %w", userID, err)
	}

	free, err := s.plans.GetFree(ctx)
	if err != nil {
		return nil, fmt.Errorf("look up free plan: %w", err)
	}

	start, end := model.CalendarMonth(s.now())
	return &model.Usage{
		UserID:             userID,
		PlanID:             free.ID,
		JobsUsed:           0,
		JobsLimit:          free.MonthlyJobsLimit,
		BillingPeriodStart: start,
		BillingPeriodEnd:   end,
	}, nil
}

// ConsumeJobQuota takes one unit of quota for the user, provisioning a free
// plan period on first use. Exhausted quota maps to a conflict so callers can
// surface it as a billing problem rather than a server fault.
func (s *UsageService) ConsumeJobQuota(ctx context.Context, userID string) error {
	at := s.now()

	err := s.usage.ConsumeQuota(ctx, userID, at)
	if errors.Is(err, data.ErrUsageNotFound) {
		if err = s.provisionFreePeriod(ctx, userID, at); err != nil {
			return err
		}
		err = s.usage.ConsumeQuota(ctx, userID, at)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, data.ErrQuotaExhausted):
		return apperrors.Conflict("job quota exhausted for the current billing period")
	default:
		return fmt.Errorf("consume quota for user %s: %w", userID, err)
	}
}

func (s *UsageService) provisionFreePeriod(ctx context.Context, userID string, at time.Time) error {
	free, err := s.plans.GetFree(ctx)
	if err != nil {
		return fmt.Errorf("look up free plan: %w", err)
	}

	start, end := model.CalendarMonth(at)
	if _, err := s.usage.Upsert(ctx, model.UpsertUsageParams{
		UserID:             userID,
		PlanID:             free.ID,
		JobsLimit:          free.MonthlyJobsLimit,
		BillingPeriodStart: start,
		BillingPeriodEnd:   end,
	}); err != nil {
		return fmt.Errorf("provision free period for user %s: %w", userID, err)
	}
	return nil
}

func (s *UsageService) skip(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "skipping billing event: "+msg, args...)
	}
}
