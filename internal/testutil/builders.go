// Package testutil provides testing utilities and helpers for the linkforge job system.
package testutil

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/linkforge/linkforge-api/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			Title:      "Test article",
			ArticleDoc: "https://docs.google.com/document/d/test-article",
		},
	}
}

// WithProjectID sets the project the job belongs to.
func (b *JobRequestBuilder) WithProjectID(projectID string) *JobRequestBuilder {
	b.req.ProjectID = projectID
	return b
}

// WithTitle sets the article title.
func (b *JobRequestBuilder) WithTitle(title string) *JobRequestBuilder {
	b.req.Title = title
	return b
}

// WithArticleDoc sets the article document URL.
func (b *JobRequestBuilder) WithArticleDoc(doc string) *JobRequestBuilder {
	b.req.ArticleDoc = doc
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// ProjectRequestBuilder provides a fluent interface for building CreateProjectRequest objects.
type ProjectRequestBuilder struct {
	req *model.CreateProjectRequest
}

// NewProjectRequest creates a new ProjectRequestBuilder with sensible defaults.
func NewProjectRequest() *ProjectRequestBuilder {
	return &ProjectRequestBuilder{
		req: &model.CreateProjectRequest{
			Title:   "Test Project",
			SiteURL: "https://example.com",
		},
	}
}

// WithTitle sets the project title.
func (b *ProjectRequestBuilder) WithTitle(title string) *ProjectRequestBuilder {
	b.req.Title = title
	return b
}

// WithSiteURL sets the project site URL.
func (b *ProjectRequestBuilder) WithSiteURL(siteURL string) *ProjectRequestBuilder {
	b.req.SiteURL = siteURL
	return b
}

// WithCornerstoneSheet sets the cornerstone sheet URL.
func (b *ProjectRequestBuilder) WithCornerstoneSheet(url string) *ProjectRequestBuilder {
	b.req.CornerstoneSheet = &url
	return b
}

// WithOrgID associates the project with an organization.
func (b *ProjectRequestBuilder) WithOrgID(orgID string) *ProjectRequestBuilder {
	b.req.OrgID = &orgID
	return b
}

// Build returns the constructed CreateProjectRequest.
func (b *ProjectRequestBuilder) Build() *model.CreateProjectRequest {
	return b.req
}

// Database fixture helpers for integration tests. These insert rows directly
// so repository tests don't have to go through unrelated repositories to set
// up their prerequisites.

// CreateTestUser inserts a user row and returns its id.
func CreateTestUser(t TestingTB, db *sql.DB, email string) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id string
	err := db.QueryRowContext(ctx, `
		INSERT INTO users (email)
		VALUES ($1)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id`, strings.ToLower(email)).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return id
}

// CreateTestProject inserts a project row for the given user and returns its id.
func CreateTestProject(t TestingTB, db *sql.DB, userID, title string) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id string
	err := db.QueryRowContext(ctx, `
		INSERT INTO projects (user_id, title, site_url)
		VALUES ($1, $2, 'https://example.com')
		RETURNING id`, userID, title).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test project: %v", err)
	}
	return id
}

// CreateTestJob inserts a queued job row and returns its id.
func CreateTestJob(t TestingTB, db *sql.DB, userID, projectID, title string) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id string
	err := db.QueryRowContext(ctx, `
		INSERT INTO jobs (project_id, user_id, title, article_doc)
		VALUES ($1, $2, $3, 'https://docs.google.com/document/d/test-article')
		RETURNING id`, projectID, userID, title).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}
	return id
}

// SetJobStatus forces a job row into the given status, optionally backdating
// updated_at so reaper tests can simulate stale processing rows.
func SetJobStatus(t TestingTB, db *sql.DB, jobID string, status model.JobStatus, updatedAt time.Time) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, updated_at = $3 WHERE id = $1`,
		jobID, string(status), updatedAt); err != nil {
		t.Fatalf("Failed to set job status: %v", err)
	}
}
