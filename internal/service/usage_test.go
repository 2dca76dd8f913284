package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/linkforge/linkforge-api/internal/adapters/billing"
	"github.com/linkforge/linkforge-api/internal/data"
	"github.com/linkforge/linkforge-api/internal/domain/model"
	apperrors "github.com/linkforge/linkforge-api/internal/errors"
	"github.com/linkforge/linkforge-api/internal/mocks"
)

type fakeVerifier struct {
	event billing.Event
	err   error
}

func (v fakeVerifier) VerifyEvent([]byte, string) (billing.Event, error) {
	return v.event, v.err
}

type fakeGateway struct {
	subs      map[string]*billing.Subscription
	customers map[string]*billing.Customer
}

func (g fakeGateway) GetSubscription(_ context.Context, id string) (*billing.Subscription, error) {
	if sub, ok := g.subs[id]; ok {
		return sub, nil
	}
	return nil, errors.New("no such subscription: " + id)
}

func (g fakeGateway) GetCustomer(_ context.Context, id string) (*billing.Customer, error) {
	if cust, ok := g.customers[id]; ok {
		return cust, nil
	}
	return nil, errors.New("no such customer: " + id)
}

type usageFixture struct {
	usage *mocks.MockUsageRepository
	users *mocks.MockUserRepository
	plans *mocks.MockPlanRepository
}

func newUsageFixture(ctrl *gomock.Controller) usageFixture {
	return usageFixture{
		usage: mocks.NewMockUsageRepository(ctrl),
		users: mocks.NewMockUserRepository(ctrl),
		plans: mocks.NewMockPlanRepository(ctrl),
	}
}

func (f usageFixture) service(t *testing.T, verifier billing.Verifier, gateway billing.Gateway, now func() time.Time) *UsageService {
	t.Helper()
	svc, err := NewUsageService(UsageServiceOptions{
		Usage:    f.usage,
		Users:    f.users,
		Plans:    f.plans,
		Verifier: verifier,
		Gateway:  gateway,
		Now:      now,
	})
	require.NoError(t, err)
	return svc
}

func proPlan() *model.Plan {
	return &model.Plan{ID: "plan-pro", Name: "Pro", StripePriceID: "price_pro", MonthlyJobsLimit: 100}
}

func freePlan() *model.Plan {
	return &model.Plan{ID: "plan-free", Name: "Free", StripePriceID: model.FreePlanPriceID, MonthlyJobsLimit: 3}
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func TestUsageService_ProcessBillingEvent_NotConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	svc := f.service(t, nil, nil, fixedNow)

	err := svc.ProcessBillingEvent(context.Background(), []byte("{}"), "sig")
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}

func TestUsageService_ProcessBillingEvent_BadSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	sigErr := apperrors.Signature("webhook signature verification failed")
	svc := f.service(t, fakeVerifier{err: sigErr}, fakeGateway{}, fixedNow)

	err := svc.ProcessBillingEvent(context.Background(), []byte("{}"), "bad-sig")
	require.Error(t, err)
	assert.True(t, apperrors.IsSignature(err))
}

func TestUsageService_ProcessBillingEvent_IgnoresUnknownTypes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	svc := f.service(t, fakeVerifier{event: billing.Event{Type: billing.EventIgnored}}, fakeGateway{}, fixedNow)

	require.NoError(t, svc.ProcessBillingEvent(context.Background(), []byte("{}"), "sig"))
}

func TestUsageService_PaidInvoice_ResetsPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	periodStart := int64(1767225600) // 2026-01-01 UTC
	periodEnd := int64(1769904000)   // 2026-02-01 UTC
	gateway := fakeGateway{
		subs: map[string]*billing.Subscription{
			"sub_1": {ID: "sub_1", CustomerID: "cus_1", PriceID: "price_pro", PeriodStart: periodStart, PeriodEnd: periodEnd},
		},
		customers: map[string]*billing.Customer{
			"cus_1": {ID: "cus_1", Email: "pro@example.com"},
		},
	}
	verifier := fakeVerifier{event: billing.Event{Type: billing.EventInvoicePaid, SubscriptionID: "sub_1"}}
	svc := f.service(t, verifier, gateway, fixedNow)

	f.users.EXPECT().GetByEmail(gomock.Any(), "pro@example.com").Return(&model.User{ID: "user-1"}, nil)
	f.plans.EXPECT().GetByStripePriceID(gomock.Any(), "price_pro").Return(proPlan(), nil)

	var captured model.UpsertUsageParams
	f.usage.EXPECT().
		Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p model.UpsertUsageParams) (*model.Usage, error) {
			captured = p
			return &model.Usage{UserID: p.UserID, PlanID: p.PlanID, JobsLimit: p.JobsLimit}, nil
		})

	require.NoError(t, svc.ProcessBillingEvent(context.Background(), []byte("{}"), "sig"))

	assert.Equal(t, "user-1", captured.UserID)
	assert.Equal(t, "plan-pro", captured.PlanID)
	assert.Equal(t, 100, captured.JobsLimit)
	assert.Equal(t, time.Unix(periodStart, 0).UTC(), captured.BillingPeriodStart)
	assert.Equal(t, time.Unix(periodEnd, 0).UTC(), captured.BillingPeriodEnd)
	require.NotNil(t, captured.StripeSubscriptionID)
	assert.Equal(t, "sub_1", *captured.StripeSubscriptionID)
}

func TestUsageService_PaidInvoice_UnknownCustomerConsumed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	gateway := fakeGateway{
		subs: map[string]*billing.Subscription{
			"sub_1": {ID: "sub_1", CustomerID: "cus_1", PriceID: "price_pro"},
		},
		customers: map[string]*billing.Customer{
			"cus_1": {ID: "cus_1", Email: "ghost@example.com"},
		},
	}
	verifier := fakeVerifier{event: billing.Event{Type: billing.EventInvoicePaid, SubscriptionID: "sub_1"}}
	svc := f.service(t, verifier, gateway, fixedNow)

	f.users.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, data.ErrUserNotFound)

	// Consumed, not failed: replaying can never succeed.
	require.NoError(t, svc.ProcessBillingEvent(context.Background(), []byte("{}"), "sig"))
}

func TestUsageService_PaidInvoice_DeletedCustomerConsumed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	gateway := fakeGateway{
		subs: map[string]*billing.Subscription{
			"sub_1": {ID: "sub_1", CustomerID: "cus_1", PriceID: "price_pro"},
		},
		customers: map[string]*billing.Customer{
			"cus_1": {ID: "cus_1", Deleted: true},
		},
	}
	verifier := fakeVerifier{event: billing.Event{Type: billing.EventInvoicePaid, SubscriptionID: "sub_1"}}
	svc := f.service(t, verifier, gateway, fixedNow)

	require.NoError(t, svc.ProcessBillingEvent(context.Background(), []byte("{}"), "sig"))
}

func TestUsageService_PaidInvoice_WithoutSubscriptionConsumed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	// A one-off invoice carries no subscription reference. An empty gateway
	// proves no lookup is attempted.
	verifier := fakeVerifier{event: billing.Event{Type: billing.EventInvoicePaid}}
	svc := f.service(t, verifier, fakeGateway{}, fixedNow)

	require.NoError(t, svc.ProcessBillingEvent(context.Background(), []byte("{}"), "sig"))
}

func TestUsageService_SubscriptionDeleted_WithoutCustomerConsumed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	verifier := fakeVerifier{event: billing.Event{Type: billing.EventSubscriptionDeleted, SubscriptionID: "sub_1"}}
	svc := f.service(t, verifier, fakeGateway{}, fixedNow)

	require.NoError(t, svc.ProcessBillingEvent(context.Background(), []byte("{}"), "sig"))
}

func TestUsageService_PaidInvoice_UnknownPriceConsumed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	gateway := fakeGateway{
		subs: map[string]*billing.Subscription{
			"sub_1": {ID: "sub_1", CustomerID: "cus_1", PriceID: "price_unknown"},
		},
		customers: map[string]*billing.Customer{
			"cus_1": {ID: "cus_1", Email: "pro@example.com"},
		},
	}
	verifier := fakeVerifier{event: billing.Event{Type: billing.EventInvoicePaid, SubscriptionID: "sub_1"}}
	svc := f.service(t, verifier, gateway, fixedNow)

	f.users.EXPECT().GetByEmail(gomock.Any(), "pro@example.com").Return(&model.User{ID: "user-1"}, nil)
	f.plans.EXPECT().GetByStripePriceID(gomock.Any(), "price_unknown").Return(nil, data.ErrPlanNotFound)

	require.NoError(t, svc.ProcessBillingEvent(context.Background(), []byte("{}"), "sig"))
}

func TestUsageService_SubscriptionDeleted_DowngradesToFree(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	gateway := fakeGateway{
		customers: map[string]*billing.Customer{
			"cus_1": {ID: "cus_1", Email: "churned@example.com"},
		},
	}
	verifier := fakeVerifier{event: billing.Event{Type: billing.EventSubscriptionDeleted, CustomerID: "cus_1"}}
	svc := f.service(t, verifier, gateway, fixedNow)

	f.users.EXPECT().GetByEmail(gomock.Any(), "churned@example.com").Return(&model.User{ID: "user-1"}, nil)
	f.plans.EXPECT().GetFree(gomock.Any()).Return(freePlan(), nil)

	wantStart, wantEnd := model.CalendarMonth(fixedNow())
	f.usage.EXPECT().
		Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p model.UpsertUsageParams) (*model.Usage, error) {
			assert.Equal(t, "plan-free", p.PlanID)
			assert.Equal(t, 3, p.JobsLimit)
			assert.Equal(t, wantStart, p.BillingPeriodStart)
			assert.Equal(t, wantEnd, p.BillingPeriodEnd)
			assert.Nil(t, p.StripeSubscriptionID)
			return &model.Usage{UserID: p.UserID}, nil
		})

	require.NoError(t, svc.ProcessBillingEvent(context.Background(), []byte("{}"), "sig"))
}

func TestUsageService_GetUsage_SynthesizesFreeView(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	svc := f.service(t, nil, nil, fixedNow)

	f.usage.EXPECT().GetCurrent(gomock.Any(), "user-1", fixedNow()).Return(nil, data.ErrUsageNotFound)
	f.plans.EXPECT().GetFree(gomock.Any()).Return(freePlan(), nil)

	usage, err := svc.GetUsage(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "plan-free", usage.PlanID)
	assert.Zero(t, usage.JobsUsed)
	assert.Equal(t, 3, usage.JobsLimit)
	wantStart, wantEnd := model.CalendarMonth(fixedNow())
	assert.Equal(t, wantStart, usage.BillingPeriodStart)
	assert.Equal(t, wantEnd, usage.BillingPeriodEnd)
}

func TestUsageService_GetUsage_ExistingRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	svc := f.service(t, nil, nil, fixedNow)

	row := &model.Usage{UserID: "user-1", PlanID: "plan-pro", JobsUsed: 42, JobsLimit: 100}
	f.usage.EXPECT().GetCurrent(gomock.Any(), "user-1", fixedNow()).Return(row, nil)

	usage, err := svc.GetUsage(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 42, usage.JobsUsed)
	assert.Equal(t, 58, usage.Remaining())
}

func TestUsageService_ConsumeJobQuota_ProvisionsOnFirstUse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	svc := f.service(t, nil, nil, fixedNow)

	gomock.InOrder(
		f.usage.EXPECT().ConsumeQuota(gomock.Any(), "user-1", fixedNow()).Return(data.ErrUsageNotFound),
		f.plans.EXPECT().GetFree(gomock.Any()).Return(freePlan(), nil),
		f.usage.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(&model.Usage{UserID: "user-1"}, nil),
		f.usage.EXPECT().ConsumeQuota(gomock.Any(), "user-1", fixedNow()).Return(nil),
	)

	require.NoError(t, svc.ConsumeJobQuota(context.Background(), "user-1"))
}

func TestUsageService_ConsumeJobQuota_Exhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	svc := f.service(t, nil, nil, fixedNow)

	f.usage.EXPECT().ConsumeQuota(gomock.Any(), "user-1", fixedNow()).Return(data.ErrQuotaExhausted)

	err := svc.ConsumeJobQuota(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestUsageService_ConsumeJobQuota_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUsageFixture(ctrl)
	svc := f.service(t, nil, nil, fixedNow)

	f.usage.EXPECT().ConsumeQuota(gomock.Any(), "user-1", fixedNow()).Return(nil)

	require.NoError(t, svc.ConsumeJobQuota(context.Background(), "user-1"))
}
