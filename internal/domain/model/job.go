// Package model defines the core data types and structures used throughout the linkforge job system.
package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// JobStatus represents the current status of a job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobStatus string

const (
	// JobStatusQueued indicates a job is waiting to be dispatched.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing indicates a job has been handed to the workflow engine.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusDone indicates a job has finished successfully.
	JobStatusDone JobStatus = "done"
	// JobStatusError indicates a job has failed.
	JobStatusError JobStatus = "error"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobStatus to allow env and JSON parsing.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	js := JobStatus(v)
	if js.Valid() {
		*s = js
		return nil
	}
	return fmt.Errorf("invalid JobStatus: %q", v)
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusProcessing || s == JobStatusDone ||
		s == JobStatusError
}

// Terminal returns true if the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// ErrNoJobsQueued is returned when the scheduler finds nothing to dispatch.
var ErrNoJobsQueued = errors.New("no jobs queued")

// Job represents an internal-link job with all its lifecycle metadata.
type Job struct {
	ID               string       `json:"id"                          db:"id"`
	ProjectID        string       `json:"project_id"                  db:"project_id"`
	UserID           string       `json:"user_id"                     db:"user_id"`
	Title            string       `json:"title"                       db:"title"`
	ArticleDoc       string       `json:"article_doc"                 db:"article_doc"`
	Status           JobStatus    `json:"status"                      db:"status"`
	ErrorMessage     *string      `json:"error_message,omitempty"     db:"error_message"`
	AnchorsN         int          `json:"anchors_n"                   db:"anchors_n"`
	Anchors          AnchorList   `json:"anchors,omitempty"           db:"anchors"`
	OriginalHTMLURL  *string      `json:"original_html_url,omitempty" db:"original_html_url"`
	UpdatedHTMLURL   *string      `json:"updated_html_url,omitempty"  db:"updated_html_url"`
	DispatchAttempts int          `json:"dispatch_attempts"           db:"dispatch_attempts"`
	DispatchedAt     *time.Time   `json:"dispatched_at,omitempty"     db:"dispatched_at"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"      db:"completed_at"`
	CreatedAt        time.Time    `json:"created_at"                  db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"                  db:"updated_at"`
}

// CreateJobRequest represents a request to create a new job.
type CreateJobRequest struct {
	ProjectID  string `json:"project_id"`
	Title      string `json:"title"`
	ArticleDoc string `json:"article_doc"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.ProjectID) == "" {
		return errors.New("project id is required")
	}
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return errors.New("title is required")
	}
	if len(title) > 200 {
		return errors.New("title must be at most 200 characters")
	}
	if !validHTTPURL(r.ArticleDoc) {
		return errors.New("article doc must be a valid URL")
	}
	return nil
}

// StatusOverrideRequest represents an administrative request to force a job status.
type StatusOverrideRequest struct {
	Status       JobStatus `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
}

// Validate validates the StatusOverrideRequest fields.
func (r *StatusOverrideRequest) Validate() error {
	if !r.Status.Valid() {
		return errors.New("invalid job status")
	}
	return nil
}

// JobStats represents counts of jobs in each state.
type JobStats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Error      int `json:"error"`
}

// JobChange is the payload carried on the job_changes notification channel.
type JobChange struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Status    JobStatus `json:"status"`
}

// validHTTPURL reports whether s parses as an absolute http(s) URL.
func validHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
