package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/domain/model"
	"github.com/linkforge/linkforge-api/internal/testutil"
)

type jobRepoFixture struct {
	db        *sql.DB
	repo      *JobRepo
	clock     *testutil.TestTimeProvider
	userID    string
	projectID string
}

func setupJobRepo(t *testing.T) *jobRepoFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupAutoDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	repo := NewJobRepo(db, RepoConfig{TimeProvider: clock})

	userID := testutil.CreateTestUser(t, db, "jobs@example.com")
	projectID := testutil.CreateTestProject(t, db, userID, "Job Repo Project")

	return &jobRepoFixture{db: db, repo: repo, clock: clock, userID: userID, projectID: projectID}
}

func (f *jobRepoFixture) createJob(t *testing.T, title string) *model.Job {
	t.Helper()
	job, err := f.repo.Create(context.Background(), f.userID, testutil.NewJobRequest().
		WithProjectID(f.projectID).
		WithTitle(title).
		Build())
	require.NoError(t, err)
	return job
}

func TestJobRepo_Create(t *testing.T) {
	f := setupJobRepo(t)
	ctx := context.Background()

	t.Run("new job starts queued", func(t *testing.T) {
		job := f.createJob(t, "How to prune roses")

		assert.NotEmpty(t, job.ID)
		assert.Equal(t, model.JobStatusQueued, job.Status)
		assert.Equal(t, f.projectID, job.ProjectID)
		assert.Equal(t, f.userID, job.UserID)
		assert.Equal(t, 0, job.DispatchAttempts)
		assert.Nil(t, job.DispatchedAt)
		assert.Nil(t, job.CompletedAt)
	})

	t.Run("invalid request rejected", func(t *testing.T) {
		_, err := f.repo.Create(ctx, f.userID, testutil.NewJobRequest().
			WithProjectID(f.projectID).
			WithArticleDoc("not a url").
			Build())
		require.Error(t, err)
	})

	t.Run("nil request rejected", func(t *testing.T) {
		_, err := f.repo.Create(ctx, f.userID, nil)
		require.Error(t, err)
	})
}

func TestJobRepo_GetByID_NotFound(t *testing.T) {
	f := setupJobRepo(t)

	_, err := f.repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobRepo_Claim(t *testing.T) {
	f := setupJobRepo(t)
	ctx := context.Background()

	t.Run("moves queued to processing", func(t *testing.T) {
		job := f.createJob(t, "Claimable")

		claimed, err := f.repo.Claim(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusProcessing, claimed.Status)
		assert.Equal(t, 1, claimed.DispatchAttempts)
		require.NotNil(t, claimed.DispatchedAt)
		assert.Equal(t, f.clock.Now().UTC(), claimed.DispatchedAt.UTC())
	})

	t.Run("second claim loses the race", func(t *testing.T) {
		job := f.createJob(t, "Claim once")

		_, err := f.repo.Claim(ctx, job.ID)
		require.NoError(t, err)

		_, err = f.repo.Claim(ctx, job.ID)
		assert.ErrorIs(t, err, ErrJobNotClaimable)
	})

	t.Run("unknown job", func(t *testing.T) {
		_, err := f.repo.Claim(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_Finalize(t *testing.T) {
	f := setupJobRepo(t)
	ctx := context.Background()

	anchors := model.AnchorList{
		{Slug: "roses", Phrase: "rose care", URL: "https://example.com/roses"},
	}
	originalURL := "https://storage.example.com/original.html"

	t.Run("records outcome on processing job", func(t *testing.T) {
		job := f.createJob(t, "Finalize me")
		_, err := f.repo.Claim(ctx, job.ID)
		require.NoError(t, err)

		done, err := f.repo.Finalize(ctx, job.ID, core.FinalizeJobParams{
			Status:          model.JobStatusDone,
			AnchorsN:        3,
			Anchors:         anchors,
			OriginalHTMLURL: &originalURL,
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusDone, done.Status)
		assert.Equal(t, 3, done.AnchorsN)
		assert.Equal(t, anchors, done.Anchors)
		require.NotNil(t, done.OriginalHTMLURL)
		assert.Equal(t, originalURL, *done.OriginalHTMLURL)
		require.NotNil(t, done.CompletedAt)
	})

	t.Run("duplicate callback falls through", func(t *testing.T) {
		job := f.createJob(t, "Finalize once")
		_, err := f.repo.Claim(ctx, job.ID)
		require.NoError(t, err)

		_, err = f.repo.Finalize(ctx, job.ID, core.FinalizeJobParams{Status: model.JobStatusDone})
		require.NoError(t, err)

		_, err = f.repo.Finalize(ctx, job.ID, core.FinalizeJobParams{Status: model.JobStatusDone})
		assert.ErrorIs(t, err, ErrJobNotFinalizable)
	})

	t.Run("queued job cannot finalize", func(t *testing.T) {
		job := f.createJob(t, "Still queued")

		_, err := f.repo.Finalize(ctx, job.ID, core.FinalizeJobParams{Status: model.JobStatusError})
		assert.ErrorIs(t, err, ErrJobNotFinalizable)
	})

	t.Run("rejects non-terminal status", func(t *testing.T) {
		job := f.createJob(t, "Bad finalize")

		_, err := f.repo.Finalize(ctx, job.ID, core.FinalizeJobParams{Status: model.JobStatusQueued})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "terminal")
	})

	t.Run("unknown job", func(t *testing.T) {
		_, err := f.repo.Finalize(ctx, "00000000-0000-0000-0000-000000000000",
			core.FinalizeJobParams{Status: model.JobStatusDone})
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_OverrideStatus(t *testing.T) {
	f := setupJobRepo(t)
	ctx := context.Background()

	t.Run("force error keeps message", func(t *testing.T) {
		job := f.createJob(t, "Force error")

		updated, err := f.repo.OverrideStatus(ctx, job.ID, model.JobStatusError, testutil.StringPtr("operator override"))
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusError, updated.Status)
		require.NotNil(t, updated.ErrorMessage)
		assert.Equal(t, "operator override", *updated.ErrorMessage)
		assert.NotNil(t, updated.CompletedAt)
	})

	t.Run("non-error target clears message", func(t *testing.T) {
		job := f.createJob(t, "Back to queued")
		_, err := f.repo.OverrideStatus(ctx, job.ID, model.JobStatusError, testutil.StringPtr("boom"))
		require.NoError(t, err)

		updated, err := f.repo.OverrideStatus(ctx, job.ID, model.JobStatusQueued, testutil.StringPtr("ignored"))
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusQueued, updated.Status)
		assert.Nil(t, updated.ErrorMessage)
		assert.Nil(t, updated.CompletedAt)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		job := f.createJob(t, "Invalid status")

		_, err := f.repo.OverrideStatus(ctx, job.ID, model.JobStatus("bogus"), nil)
		require.Error(t, err)
	})

	t.Run("unknown job", func(t *testing.T) {
		_, err := f.repo.OverrideStatus(ctx, "00000000-0000-0000-0000-000000000000", model.JobStatusDone, nil)
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_ListQueued_OldestFirst(t *testing.T) {
	f := setupJobRepo(t)
	ctx := context.Background()

	first := f.createJob(t, "first")
	second := f.createJob(t, "second")
	third := f.createJob(t, "third")

	// A processing job must not show up in the batch.
	_, err := f.repo.Claim(ctx, second.ID)
	require.NoError(t, err)

	queued, err := f.repo.ListQueued(ctx, 10)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, first.ID, queued[0].ID)
	assert.Equal(t, third.ID, queued[1].ID)

	limited, err := f.repo.ListQueued(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.ID, limited[0].ID)
}

func TestJobRepo_Stats(t *testing.T) {
	f := setupJobRepo(t)
	ctx := context.Background()

	f.createJob(t, "queued 1")
	f.createJob(t, "queued 2")
	claimed := f.createJob(t, "in flight")
	_, err := f.repo.Claim(ctx, claimed.ID)
	require.NoError(t, err)

	otherUser := testutil.CreateTestUser(t, f.db, "other@example.com")
	otherProject := testutil.CreateTestProject(t, f.db, otherUser, "Other Project")
	testutil.CreateTestJob(t, f.db, otherUser, otherProject, "someone else's job")

	all, err := f.repo.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Queued)
	assert.Equal(t, 1, all.Processing)

	mine, err := f.repo.Stats(ctx, &f.userID)
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Queued)
	assert.Equal(t, 1, mine.Processing)
	assert.Equal(t, 0, mine.Done)
	assert.Equal(t, 0, mine.Error)
}

func TestJobRepo_Delete(t *testing.T) {
	f := setupJobRepo(t)
	ctx := context.Background()

	t.Run("terminal job deletes", func(t *testing.T) {
		job := f.createJob(t, "Delete me")
		_, err := f.repo.Claim(ctx, job.ID)
		require.NoError(t, err)
		_, err = f.repo.Finalize(ctx, job.ID, core.FinalizeJobParams{Status: model.JobStatusDone})
		require.NoError(t, err)

		require.NoError(t, f.repo.Delete(ctx, job.ID))

		_, err = f.repo.GetByID(ctx, job.ID)
		assert.ErrorIs(t, err, ErrJobNotFound)
	})

	t.Run("queued job protected", func(t *testing.T) {
		job := f.createJob(t, "Keep me")

		err := f.repo.Delete(ctx, job.ID)
		assert.ErrorIs(t, err, ErrJobNotDeletable)
	})

	t.Run("processing job protected", func(t *testing.T) {
		job := f.createJob(t, "In flight")
		_, err := f.repo.Claim(ctx, job.ID)
		require.NoError(t, err)

		err = f.repo.Delete(ctx, job.ID)
		assert.ErrorIs(t, err, ErrJobNotDeletable)
	})

	t.Run("unknown job", func(t *testing.T) {
		err := f.repo.Delete(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_ConcurrentClaims_OnlyOneWins(t *testing.T) {
	f := setupJobRepo(t)
	ctx := context.Background()

	job := f.createJob(t, "Contested")

	runner := testutil.NewConcurrentTestRunner(t, f.db)
	claim := func() error {
		_, err := f.repo.Claim(ctx, job.ID)
		return err
	}
	errs := runner.RunConcurrent(claim, claim, claim, claim)

	var winners, losers int
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		default:
			require.ErrorIs(t, err, ErrJobNotClaimable)
			losers++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 3, losers)

	after, err := f.repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.DispatchAttempts)
}

func TestJobRepo_ReclaimStaleProcessing(t *testing.T) {
	f := setupJobRepo(t)
	ctx := context.Background()

	params := core.ReclaimStaleJobsParams{
		MaxAge:      15 * time.Minute,
		MaxAttempts: 3,
		BatchSize:   100,
	}

	t.Run("validates params", func(t *testing.T) {
		_, err := f.repo.ReclaimStaleProcessing(ctx, core.ReclaimStaleJobsParams{MaxAttempts: 3, BatchSize: 10})
		require.Error(t, err)
		_, err = f.repo.ReclaimStaleProcessing(ctx, core.ReclaimStaleJobsParams{MaxAge: time.Minute, BatchSize: 10})
		require.Error(t, err)
		_, err = f.repo.ReclaimStaleProcessing(ctx, core.ReclaimStaleJobsParams{MaxAge: time.Minute, MaxAttempts: 3})
		require.Error(t, err)
	})

	t.Run("requeues stale and fails exhausted", func(t *testing.T) {
		stale := f.createJob(t, "stale once")
		exhausted := f.createJob(t, "exhausted")
		fresh := f.createJob(t, "fresh")

		// Claim while the clock reads an hour ago so dispatched_at is stale.
		f.clock.SetTime(testutil.TestTime().Add(-time.Hour))
		_, err := f.repo.Claim(ctx, stale.ID)
		require.NoError(t, err)
		_, err = f.repo.Claim(ctx, exhausted.ID)
		require.NoError(t, err)

		// Burn through the exhausted job's remaining attempts.
		for i := 0; i < params.MaxAttempts-1; i++ {
			_, err = f.repo.OverrideStatus(ctx, exhausted.ID, model.JobStatusQueued, nil)
			require.NoError(t, err)
			_, err = f.repo.Claim(ctx, exhausted.ID)
			require.NoError(t, err)
		}

		// The fresh job was claimed just now.
		f.clock.SetTime(testutil.TestTime())
		_, err = f.repo.Claim(ctx, fresh.ID)
		require.NoError(t, err)

		result, err := f.repo.ReclaimStaleProcessing(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Requeued)
		assert.Equal(t, int64(1), result.Errored)
		assert.Equal(t, int64(2), result.Total())

		requeued, err := f.repo.GetByID(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusQueued, requeued.Status)
		assert.Nil(t, requeued.DispatchedAt)

		errored, err := f.repo.GetByID(ctx, exhausted.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusError, errored.Status)
		require.NotNil(t, errored.ErrorMessage)
		assert.Equal(t, "processing timed out", *errored.ErrorMessage)

		untouched, err := f.repo.GetByID(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusProcessing, untouched.Status)
	})

	t.Run("nothing stale", func(t *testing.T) {
		result, err := f.repo.ReclaimStaleProcessing(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.Total())
	})
}
