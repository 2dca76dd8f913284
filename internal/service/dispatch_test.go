package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/linkforge/linkforge-api/internal/adapters/workflow"
	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/data"
	"github.com/linkforge/linkforge-api/internal/domain/model"
	apperrors "github.com/linkforge/linkforge-api/internal/errors"
	"github.com/linkforge/linkforge-api/internal/mocks"
)

// fakeEngine records dispatch payloads and returns a canned result.
type fakeEngine struct {
	payloads []workflow.DispatchPayload
	result   *workflow.DispatchResult
	err      error
}

func (e *fakeEngine) Dispatch(_ context.Context, payload workflow.DispatchPayload) (*workflow.DispatchResult, error) {
	e.payloads = append(e.payloads, payload)
	if e.err != nil {
		return nil, e.err
	}
	if e.result != nil {
		return e.result, nil
	}
	return &workflow.DispatchResult{StatusCode: 200}, nil
}

func TestNewDispatchService_RequiredOptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, err := NewDispatchService(DispatchServiceOptions{Engine: &fakeEngine{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JobRepository is required")

	_, err = NewDispatchService(DispatchServiceOptions{Repo: mocks.NewMockJobRepository(ctrl)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Engine is required")
}

func TestDispatchService_Dispatch_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	engine := &fakeEngine{result: &workflow.DispatchResult{StatusCode: 200, Body: "ok"}}
	svc := MustNewDispatchService(DispatchServiceOptions{Repo: repo, Engine: engine})

	claimed := &model.Job{
		ID:         "job-1",
		ProjectID:  "project-1",
		Title:      "How to prune roses",
		ArticleDoc: "https://docs.google.com/document/d/abc123",
		Status:     model.JobStatusProcessing,
	}
	repo.EXPECT().Claim(gomock.Any(), "job-1").Return(claimed, nil)

	job, err := svc.Dispatch(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, job.Status)

	require.Len(t, engine.payloads, 1)
	payload := engine.payloads[0]
	assert.Equal(t, "job-1", payload.JobID)
	assert.Equal(t, "project-1", payload.ProjectID)
	assert.Equal(t, "How to prune roses", payload.Title)
	assert.Equal(t, "https://docs.google.com/document/d/abc123", payload.ArticleDoc)
	assert.Equal(t, "processing", payload.Status)
}

func TestDispatchService_Dispatch_NotQueued(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	engine := &fakeEngine{}
	svc := MustNewDispatchService(DispatchServiceOptions{Repo: repo, Engine: engine})

	repo.EXPECT().Claim(gomock.Any(), "job-1").Return(nil, data.ErrJobNotClaimable)

	job, err := svc.Dispatch(context.Background(), "job-1")
	require.Error(t, err)
	assert.Nil(t, job)
	assert.True(t, apperrors.IsConflict(err))
	assert.Empty(t, engine.payloads, "engine must not be called when the claim fails")
}

func TestDispatchService_Dispatch_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewDispatchService(DispatchServiceOptions{Repo: repo, Engine: &fakeEngine{}})

	repo.EXPECT().Claim(gomock.Any(), "missing").Return(nil, data.ErrJobNotFound)

	_, err := svc.Dispatch(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDispatchService_Dispatch_EngineFailureFinalizesJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	engineErr := errors.New("workflow engine returned status 502")
	engine := &fakeEngine{err: engineErr}
	svc := MustNewDispatchService(DispatchServiceOptions{Repo: repo, Engine: engine})

	claimed := &model.Job{ID: "job-1", Status: model.JobStatusProcessing}
	repo.EXPECT().Claim(gomock.Any(), "job-1").Return(claimed, nil)

	var captured core.FinalizeJobParams
	repo.EXPECT().
		Finalize(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p core.FinalizeJobParams) (*model.Job, error) {
			captured = p
			msg := *p.ErrorMessage
			return &model.Job{ID: "job-1", Status: p.Status, ErrorMessage: &msg}, nil
		})

	job, err := svc.Dispatch(context.Background(), "job-1")
	require.ErrorIs(t, err, engineErr)
	require.NotNil(t, job)
	assert.Equal(t, model.JobStatusError, job.Status)
	assert.Equal(t, model.JobStatusError, captured.Status)
	require.NotNil(t, captured.ErrorMessage)
	assert.Equal(t, engineErr.Error(), *captured.ErrorMessage)
}

func TestDispatchService_Dispatch_TruncatesLongEngineError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	longMsg := strings.Repeat("x", maxStoredErrorLen+100)
	engine := &fakeEngine{err: errors.New(longMsg)}
	svc := MustNewDispatchService(DispatchServiceOptions{Repo: repo, Engine: engine})

	repo.EXPECT().Claim(gomock.Any(), "job-1").Return(&model.Job{ID: "job-1"}, nil)

	var stored string
	repo.EXPECT().
		Finalize(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p core.FinalizeJobParams) (*model.Job, error) {
			stored = *p.ErrorMessage
			return &model.Job{ID: "job-1", Status: p.Status}, nil
		})

	_, err := svc.Dispatch(context.Background(), "job-1")
	require.Error(t, err)
	assert.Len(t, stored, maxStoredErrorLen+len("... (truncated)"))
	assert.True(t, strings.HasSuffix(stored, "... (truncated)"))
}

func TestTruncateError(t *testing.T) {
	assert.Equal(t, "short", truncateError("short", 10))
	assert.Equal(t, "abcde... (truncated)", truncateError("abcdefgh", 5))
}
