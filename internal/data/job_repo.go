package data

import (
	"database/sql"
	"errors"
	"log/slog"
)

var (
	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotClaimable is returned when a claim loses the conditional update
	// because the job is no longer queued.
	ErrJobNotClaimable = errors.New("job is not queued")
	// ErrJobNotFinalizable is returned when a finalize loses the conditional update
	// because the job is not in processing.
	ErrJobNotFinalizable = errors.New("job is not processing")
	// ErrJobNotDeletable is returned when attempting to delete a job that has not
	// reached a terminal status.
	ErrJobNotDeletable = errors.New("job cannot be deleted (must be done or error)")
)

// JobChangesChannel is the pg_notify channel fired on every job row change.
const JobChangesChannel = "job_changes"

// RepoConfig holds configuration options shared by the repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

func (c RepoConfig) timeProvider() TimeProvider {
	if c.TimeProvider != nil {
		return c.TimeProvider
	}
	return &RealTimeProvider{}
}

// JobRepo provides database operations for job lifecycle management.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	return &JobRepo{
		DB:           db,
		timeProvider: cfg.timeProvider(),
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  project_id,
  user_id,
  title,
  article_doc,
  status,
  error_message,
  anchors_n,
  anchors,
  original_html_url,
  updated_html_url,
  dispatch_attempts,
  dispatched_at,
  completed_at,
  created_at,
  updated_at
`
