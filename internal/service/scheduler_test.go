package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/linkforge/linkforge-api/internal/domain/model"
	"github.com/linkforge/linkforge-api/internal/mocks"
)

func newTestScheduler(t *testing.T, repo *mocks.MockJobRepository, engine *fakeEngine, batchSize int) *SchedulerService {
	t.Helper()
	dispatch := MustNewDispatchService(DispatchServiceOptions{Repo: repo, Engine: engine})
	return MustNewSchedulerService(SchedulerServiceOptions{
		Repo:      repo,
		Dispatch:  dispatch,
		BatchSize: batchSize,
		PaceDelay: time.Millisecond,
	})
}

func queuedJob(id string) *model.Job {
	return &model.Job{
		ID:         id,
		ProjectID:  "project-1",
		UserID:     "user-1",
		Title:      "Article " + id,
		ArticleDoc: "https://docs.google.com/document/d/" + id,
		Status:     model.JobStatusQueued,
	}
}

func TestSchedulerService_RunBatch_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	engine := &fakeEngine{}
	sched := newTestScheduler(t, repo, engine, 10)

	repo.EXPECT().ListQueued(gomock.Any(), 10).Return(nil, nil)

	result, err := sched.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.ProcessedCount)
	assert.Empty(t, result.Results)
	assert.Empty(t, engine.payloads)
}

func TestSchedulerService_RunBatch_DispatchesOldestFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	engine := &fakeEngine{}
	sched := newTestScheduler(t, repo, engine, 10)

	jobs := []*model.Job{queuedJob("job-1"), queuedJob("job-2"), queuedJob("job-3")}
	repo.EXPECT().ListQueued(gomock.Any(), 10).Return(jobs, nil)
	for _, j := range jobs {
		claimed := *j
		claimed.Status = model.JobStatusProcessing
		repo.EXPECT().Claim(gomock.Any(), j.ID).Return(&claimed, nil)
	}

	result, err := sched.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.ProcessedCount)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Zero(t, result.ErrorCount)

	require.Len(t, engine.payloads, 3)
	assert.Equal(t, "job-1", engine.payloads[0].JobID)
	assert.Equal(t, "job-2", engine.payloads[1].JobID)
	assert.Equal(t, "job-3", engine.payloads[2].JobID)
}

func TestSchedulerService_RunBatch_PerJobFailuresDoNotAbort(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	engine := &fakeEngine{err: errors.New("engine offline")}
	sched := newTestScheduler(t, repo, engine, 10)

	jobs := []*model.Job{queuedJob("job-1"), queuedJob("job-2")}
	repo.EXPECT().ListQueued(gomock.Any(), 10).Return(jobs, nil)
	for _, j := range jobs {
		claimed := *j
		claimed.Status = model.JobStatusProcessing
		repo.EXPECT().Claim(gomock.Any(), j.ID).Return(&claimed, nil)
		repo.EXPECT().
			Finalize(gomock.Any(), j.ID, gomock.Any()).
			Return(&model.Job{ID: j.ID, Status: model.JobStatusError}, nil)
	}

	result, err := sched.RunBatch(context.Background())
	require.NoError(t, err, "per-job failures are reported in the result, not returned")
	assert.Equal(t, 2, result.ProcessedCount)
	assert.Zero(t, result.SuccessCount)
	assert.Equal(t, 2, result.ErrorCount)
	for _, entry := range result.Results {
		assert.Equal(t, "error", entry.Status)
		assert.Contains(t, entry.Error, "engine offline")
	}
}

func TestSchedulerService_RunBatch_MixedOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	engine := &fakeEngine{}
	sched := newTestScheduler(t, repo, engine, 10)

	jobs := []*model.Job{queuedJob("job-1"), queuedJob("job-2")}
	repo.EXPECT().ListQueued(gomock.Any(), 10).Return(jobs, nil)

	ok := *jobs[0]
	ok.Status = model.JobStatusProcessing
	repo.EXPECT().Claim(gomock.Any(), "job-1").Return(&ok, nil)

	// Second job was grabbed by a concurrent dispatcher in the meantime.
	repo.EXPECT().Claim(gomock.Any(), "job-2").Return(nil, errors.New("job is not queued"))

	result, err := sched.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
}

func TestSchedulerService_RunBatch_ListError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	sched := newTestScheduler(t, repo, &fakeEngine{}, 10)

	repo.EXPECT().ListQueued(gomock.Any(), 10).Return(nil, errors.New("db down"))

	result, err := sched.RunBatch(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestSchedulerService_RunBatch_RespectsContextCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	engine := &fakeEngine{}
	dispatch := MustNewDispatchService(DispatchServiceOptions{Repo: repo, Engine: engine})
	sched := MustNewSchedulerService(SchedulerServiceOptions{
		Repo:      repo,
		Dispatch:  dispatch,
		BatchSize: 10,
		PaceDelay: time.Minute,
	})

	jobs := []*model.Job{queuedJob("job-1"), queuedJob("job-2")}
	repo.EXPECT().ListQueued(gomock.Any(), 10).Return(jobs, nil)

	ok := *jobs[0]
	ok.Status = model.JobStatusProcessing
	ctx, cancel := context.WithCancel(context.Background())
	repo.EXPECT().Claim(gomock.Any(), "job-1").DoAndReturn(
		func(context.Context, string) (*model.Job, error) {
			cancel()
			return &ok, nil
		})

	result, err := sched.RunBatch(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.ProcessedCount, "the batch stops before job-2")
	assert.Empty(t, engine.payloads[1:], "job-2 must not be dispatched")
}
