package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/linkforge/linkforge-api/internal/adapters/blobstore"
	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/data"
	"github.com/linkforge/linkforge-api/internal/domain/model"
	apperrors "github.com/linkforge/linkforge-api/internal/errors"
	"github.com/linkforge/linkforge-api/internal/mocks"
)

// failingStore rejects every upload.
type failingStore struct{}

func (failingStore) Put(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("storage unavailable")
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func statusPtr(s model.JobStatus) *model.JobStatus { return &s }

func processingJob() *model.Job {
	return &model.Job{
		ID:        "job-1",
		ProjectID: "project-1",
		UserID:    "user-1",
		Title:     "How to prune roses",
		Status:    model.JobStatusProcessing,
	}
}

func TestIngestService_IngestResult_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewIngestService(IngestServiceOptions{Repo: repo})

	repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(processingJob(), nil)

	var captured core.FinalizeJobParams
	repo.EXPECT().
		Finalize(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p core.FinalizeJobParams) (*model.Job, error) {
			captured = p
			return &model.Job{ID: "job-1", Status: p.Status, AnchorsN: p.AnchorsN}, nil
		})

	req := &model.IngestResultRequest{
		JobID:        "job-1",
		AnchorsAdded: intPtr(4),
		AnchorsLog: []byte(`[
			{"anchor_text": "soil health", "url": "https://example.com/soil"},
			{"anchor_text": "mulching", "url": "https://example.com/mulch"}
		]`),
	}
	job, err := svc.IngestResult(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDone, job.Status)
	assert.Equal(t, 4, job.AnchorsN)

	assert.Equal(t, model.JobStatusDone, captured.Status)
	assert.Equal(t, 4, captured.AnchorsN, "explicit anchors_added wins over the log length")
	assert.Len(t, captured.Anchors, 2)
	assert.Nil(t, captured.OriginalHTMLURL)
	assert.Nil(t, captured.UpdatedHTMLURL)
}

func TestIngestService_IngestResult_AnchorsCountedFromLog(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewIngestService(IngestServiceOptions{Repo: repo})

	repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(processingJob(), nil)

	var captured core.FinalizeJobParams
	repo.EXPECT().
		Finalize(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p core.FinalizeJobParams) (*model.Job, error) {
			captured = p
			return &model.Job{ID: "job-1", Status: p.Status, AnchorsN: p.AnchorsN}, nil
		})

	req := &model.IngestResultRequest{
		JobID:      "job-1",
		AnchorsLog: []byte(`[{"anchor_text": "soil health", "url": "https://example.com/soil"}]`),
	}
	_, err := svc.IngestResult(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, captured.AnchorsN)
}

func TestIngestService_IngestResult_ErrorOutcome(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewIngestService(IngestServiceOptions{Repo: repo})

	repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(processingJob(), nil)

	errMsg := "workflow engine timed out after 120s"
	repo.EXPECT().
		Finalize(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p core.FinalizeJobParams) (*model.Job, error) {
			assert.Equal(t, model.JobStatusError, p.Status)
			require.NotNil(t, p.ErrorMessage)
			assert.Equal(t, errMsg, *p.ErrorMessage)
			return &model.Job{ID: "job-1", Status: p.Status, ErrorMessage: p.ErrorMessage}, nil
		})

	req := &model.IngestResultRequest{
		JobID:        "job-1",
		Status:       statusPtr(model.JobStatusError),
		ErrorMessage: strPtr(errMsg),
	}
	job, err := svc.IngestResult(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusError, job.Status)
}

func TestIngestService_IngestResult_ErrorOutcomeDropsAnchors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewIngestService(IngestServiceOptions{Repo: repo})

	repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(processingJob(), nil)

	var captured core.FinalizeJobParams
	repo.EXPECT().
		Finalize(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p core.FinalizeJobParams) (*model.Job, error) {
			captured = p
			return &model.Job{ID: "job-1", Status: p.Status}, nil
		})

	// A failed run can still report the links it got through before dying.
	req := &model.IngestResultRequest{
		JobID:        "job-1",
		Status:       statusPtr(model.JobStatusError),
		ErrorMessage: strPtr("document fetch failed"),
		AnchorsAdded: intPtr(3),
		AnchorsLog:   []byte(`[{"anchor_text": "soil health", "url": "https://example.com/soil"}]`),
	}
	_, err := svc.IngestResult(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, captured.AnchorsN, "error outcome must not record an anchor count")
	assert.Nil(t, captured.Anchors)
}

func TestIngestService_IngestResult_ErrorOutcomeDefaultsMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewIngestService(IngestServiceOptions{Repo: repo})

	repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(processingJob(), nil)

	repo.EXPECT().
		Finalize(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p core.FinalizeJobParams) (*model.Job, error) {
			require.NotNil(t, p.ErrorMessage)
			assert.Equal(t, "job failed", *p.ErrorMessage)
			return &model.Job{ID: "job-1", Status: p.Status, ErrorMessage: p.ErrorMessage}, nil
		})

	req := &model.IngestResultRequest{
		JobID:  "job-1",
		Status: statusPtr(model.JobStatusError),
	}
	_, err := svc.IngestResult(context.Background(), req)
	require.NoError(t, err)
}

func TestIngestService_IngestResult_DoneOutcomeClearsStrayErrorMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewIngestService(IngestServiceOptions{Repo: repo})

	repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(processingJob(), nil)

	repo.EXPECT().
		Finalize(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p core.FinalizeJobParams) (*model.Job, error) {
			assert.Nil(t, p.ErrorMessage, "done outcome must not carry an error message")
			return &model.Job{ID: "job-1", Status: p.Status}, nil
		})

	req := &model.IngestResultRequest{
		JobID:        "job-1",
		Status:       statusPtr(model.JobStatusDone),
		AnchorsAdded: intPtr(2),
		ErrorMessage: strPtr("leftover from a retried run"),
	}
	_, err := svc.IngestResult(context.Background(), req)
	require.NoError(t, err)
}

func TestIngestService_IngestResult_ValidationFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewIngestService(IngestServiceOptions{Repo: repo})

	tests := []struct {
		name string
		req  *model.IngestResultRequest
	}{
		{"missing job id", &model.IngestResultRequest{}},
		{"non-terminal status", &model.IngestResultRequest{
			JobID:  "job-1",
			Status: statusPtr(model.JobStatusProcessing),
		}},
		{"no result fields", &model.IngestResultRequest{JobID: "job-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.IngestResult(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestIngestService_IngestResult_NotProcessing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewIngestService(IngestServiceOptions{Repo: repo})

	repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(processingJob(), nil)
	repo.EXPECT().Finalize(gomock.Any(), "job-1", gomock.Any()).Return(nil, data.ErrJobNotFinalizable)

	req := &model.IngestResultRequest{JobID: "job-1", Status: statusPtr(model.JobStatusDone)}
	_, err := svc.IngestResult(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestIngestService_IngestResult_UnknownJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewIngestService(IngestServiceOptions{Repo: repo})

	repo.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, data.ErrJobNotFound)

	req := &model.IngestResultRequest{JobID: "missing", Status: statusPtr(model.JobStatusDone)}
	_, err := svc.IngestResult(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestIngestService_StoresSnapshots(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	store := blobstore.NewMemoryStore()
	fixed := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	svc := MustNewIngestService(IngestServiceOptions{
		Repo:      repo,
		Snapshots: store,
		Now:       func() time.Time { return fixed },
	})

	repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(processingJob(), nil)

	var captured core.FinalizeJobParams
	repo.EXPECT().
		Finalize(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p core.FinalizeJobParams) (*model.Job, error) {
			captured = p
			return &model.Job{ID: "job-1", Status: p.Status}, nil
		})

	req := &model.IngestResultRequest{
		JobID:        "job-1",
		OriginalHTML: strPtr("<html>before</html>"),
		UpdatedHTML:  strPtr("<html>after</html>"),
	}
	_, err := svc.IngestResult(context.Background(), req)
	require.NoError(t, err)

	stamp := fixed.UnixMilli()
	origPath := fmt.Sprintf("user-1/job-1/original-%d.html", stamp)
	updPath := fmt.Sprintf("user-1/job-1/updated-%d.html", stamp)

	require.NotNil(t, captured.OriginalHTMLURL)
	require.NotNil(t, captured.UpdatedHTMLURL)
	assert.Equal(t, "mem://"+origPath, *captured.OriginalHTMLURL)
	assert.Equal(t, "mem://"+updPath, *captured.UpdatedHTMLURL)
	assert.Equal(t, []byte("<html>before</html>"), store.Get(origPath))
	assert.Equal(t, []byte("<html>after</html>"), store.Get(updPath))
}

func TestIngestService_SnapshotFailureStillFinalizes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewIngestService(IngestServiceOptions{
		Repo:      repo,
		Snapshots: failingStore{},
	})

	repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(processingJob(), nil)

	repo.EXPECT().
		Finalize(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p core.FinalizeJobParams) (*model.Job, error) {
			assert.Nil(t, p.OriginalHTMLURL)
			assert.Nil(t, p.UpdatedHTMLURL)
			return &model.Job{ID: "job-1", Status: p.Status}, nil
		})

	req := &model.IngestResultRequest{
		JobID:        "job-1",
		OriginalHTML: strPtr("<html>before</html>"),
		UpdatedHTML:  strPtr("<html>after</html>"),
	}
	job, err := svc.IngestResult(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDone, job.Status)
}

// flakyStore accepts the first upload and rejects the rest.
type flakyStore struct {
	calls int
}

func (s *flakyStore) Put(_ context.Context, path, _ string, _ []byte) (string, error) {
	s.calls++
	if s.calls > 1 {
		return "", errors.New("storage unavailable")
	}
	return "mem://" + path, nil
}

func TestIngestService_SecondUploadFailureDropsBothReferences(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewIngestService(IngestServiceOptions{
		Repo:      repo,
		Snapshots: &flakyStore{},
	})

	repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(processingJob(), nil)

	repo.EXPECT().
		Finalize(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p core.FinalizeJobParams) (*model.Job, error) {
			assert.Nil(t, p.OriginalHTMLURL)
			assert.Nil(t, p.UpdatedHTMLURL)
			return &model.Job{ID: "job-1", Status: p.Status}, nil
		})

	req := &model.IngestResultRequest{
		JobID:        "job-1",
		OriginalHTML: strPtr("<html>before</html>"),
		UpdatedHTML:  strPtr("<html>after</html>"),
	}
	_, err := svc.IngestResult(context.Background(), req)
	require.NoError(t, err)
}

func TestIngestService_PartialSnapshotIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	store := blobstore.NewMemoryStore()
	svc := MustNewIngestService(IngestServiceOptions{Repo: repo, Snapshots: store})

	repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(processingJob(), nil)

	repo.EXPECT().
		Finalize(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p core.FinalizeJobParams) (*model.Job, error) {
			assert.Nil(t, p.OriginalHTMLURL)
			assert.Nil(t, p.UpdatedHTMLURL)
			return &model.Job{ID: "job-1", Status: p.Status}, nil
		})

	req := &model.IngestResultRequest{
		JobID:        "job-1",
		OriginalHTML: strPtr("<html>before</html>"),
	}
	_, err := svc.IngestResult(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, store.Paths())
}
