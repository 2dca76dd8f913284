package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/linkforge/linkforge-api/config"
	"github.com/linkforge/linkforge-api/internal/core"
	domainjob "github.com/linkforge/linkforge-api/internal/domain/job"
	"github.com/linkforge/linkforge-api/internal/mocks"
)

func testReaperConfig() config.ReaperConfig {
	return config.ReaperConfig{
		Interval:         time.Minute,
		ProcessingMaxAge: 15 * time.Minute,
		MaxAttempts:      3,
		BatchSize:        500,
	}
}

func TestNewReaperService_RequiredOptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, err := NewReaperService(ReaperServiceOptions{Orgs: mocks.NewMockOrgRepository(ctrl)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JobRepository is required")

	_, err = NewReaperService(ReaperServiceOptions{Jobs: mocks.NewMockJobRepository(ctrl)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OrgRepository is required")
}

func TestReaperService_RunCleanup_ReclaimsAndDeletes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobs := mocks.NewMockJobRepository(ctrl)
	orgs := mocks.NewMockOrgRepository(ctrl)
	svc := MustNewReaperService(ReaperServiceOptions{
		Jobs:   jobs,
		Orgs:   orgs,
		Config: testReaperConfig(),
	})

	wantParams := core.ReclaimStaleJobsParams{
		MaxAge:      15 * time.Minute,
		MaxAttempts: 3,
		BatchSize:   500,
	}
	// First pass touches rows, second pass drains to zero.
	gomock.InOrder(
		jobs.EXPECT().
			ReclaimStaleProcessing(gomock.Any(), wantParams).
			Return(core.ReclaimStaleResult{Requeued: 2, Errored: 1}, nil),
		jobs.EXPECT().
			ReclaimStaleProcessing(gomock.Any(), wantParams).
			Return(core.ReclaimStaleResult{}, nil),
	)
	gomock.InOrder(
		orgs.EXPECT().DeleteExpiredInvites(gomock.Any(), 500).Return(int64(4), nil),
		orgs.EXPECT().DeleteExpiredInvites(gomock.Any(), 500).Return(int64(0), nil),
	)

	require.NoError(t, svc.RunCleanup(context.Background()))
}

func TestReaperService_RunCleanup_NormalizesReclaimWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobs := mocks.NewMockJobRepository(ctrl)
	orgs := mocks.NewMockOrgRepository(ctrl)
	cfg := testReaperConfig()
	cfg.ProcessingMaxAge = 0
	cfg.MaxAttempts = 0
	svc := MustNewReaperService(ReaperServiceOptions{
		Jobs:   jobs,
		Orgs:   orgs,
		Config: cfg,
	})

	// An unconfigured window and attempt budget resolve through the policy
	// rather than reaching the repository as zeroes.
	wantParams := core.ReclaimStaleJobsParams{
		MaxAge:      domainjob.DefaultReclaimWindow,
		MaxAttempts: domainjob.MinReclaimAttempts,
		BatchSize:   500,
	}
	jobs.EXPECT().
		ReclaimStaleProcessing(gomock.Any(), wantParams).
		Return(core.ReclaimStaleResult{}, nil)
	orgs.EXPECT().DeleteExpiredInvites(gomock.Any(), 500).Return(int64(0), nil)

	require.NoError(t, svc.RunCleanup(context.Background()))
}

func TestReaperService_RunCleanup_NothingToDo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobs := mocks.NewMockJobRepository(ctrl)
	orgs := mocks.NewMockOrgRepository(ctrl)
	svc := MustNewReaperService(ReaperServiceOptions{
		Jobs:   jobs,
		Orgs:   orgs,
		Config: testReaperConfig(),
	})

	jobs.EXPECT().
		ReclaimStaleProcessing(gomock.Any(), gomock.Any()).
		Return(core.ReclaimStaleResult{}, nil)
	orgs.EXPECT().DeleteExpiredInvites(gomock.Any(), 500).Return(int64(0), nil)

	require.NoError(t, svc.RunCleanup(context.Background()))
}

func TestReaperService_RunCleanup_StepFailureDoesNotSkipOthers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobs := mocks.NewMockJobRepository(ctrl)
	orgs := mocks.NewMockOrgRepository(ctrl)
	svc := MustNewReaperService(ReaperServiceOptions{
		Jobs:   jobs,
		Orgs:   orgs,
		Config: testReaperConfig(),
	})

	jobs.EXPECT().
		ReclaimStaleProcessing(gomock.Any(), gomock.Any()).
		Return(core.ReclaimStaleResult{}, errors.New("db down"))
	// Invite cleanup still runs after the reclaim step fails.
	orgs.EXPECT().DeleteExpiredInvites(gomock.Any(), 500).Return(int64(0), nil)

	err := svc.RunCleanup(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reclaim stale processing jobs")
}

func TestReaperService_RunCleanup_AllCanceledCollapsesToCanceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobs := mocks.NewMockJobRepository(ctrl)
	orgs := mocks.NewMockOrgRepository(ctrl)
	svc := MustNewReaperService(ReaperServiceOptions{
		Jobs:   jobs,
		Orgs:   orgs,
		Config: testReaperConfig(),
	})

	jobs.EXPECT().
		ReclaimStaleProcessing(gomock.Any(), gomock.Any()).
		Return(core.ReclaimStaleResult{}, context.Canceled)
	orgs.EXPECT().DeleteExpiredInvites(gomock.Any(), 500).Return(int64(0), context.Canceled)

	err := svc.RunCleanup(context.Background())
	require.ErrorIs(t, err, context.Canceled)
}

func TestReaperService_Run_GracefulShutdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobs := mocks.NewMockJobRepository(ctrl)
	orgs := mocks.NewMockOrgRepository(ctrl)
	cfg := testReaperConfig()
	cfg.Interval = 50 * time.Millisecond
	svc := MustNewReaperService(ReaperServiceOptions{
		Jobs:   jobs,
		Orgs:   orgs,
		Config: cfg,
	})

	jobs.EXPECT().
		ReclaimStaleProcessing(gomock.Any(), gomock.Any()).
		Return(core.ReclaimStaleResult{}, nil).
		AnyTimes()
	orgs.EXPECT().DeleteExpiredInvites(gomock.Any(), 500).Return(int64(0), nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "context cancellation is a graceful shutdown")
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop after cancellation")
	}
}

func TestReclaimStaleResult_Total(t *testing.T) {
	r := core.ReclaimStaleResult{Requeued: 3, Errored: 2}
	assert.Equal(t, int64(5), r.Total())
	assert.Zero(t, core.ReclaimStaleResult{}.Total())
}
