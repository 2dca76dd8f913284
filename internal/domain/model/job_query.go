package model

// JobListOptions groups parameters for listing jobs with optional filters.
type JobListOptions struct {
	ProjectID *string    // Optional filter by project_id
	UserID    *string    // Optional filter by user_id
	Status    *JobStatus // Optional filter by status (queued, processing, done, error)
	SortBy    string     // Sort field: "created_at", "status" (default: "created_at")
	SortOrder string     // Sort order: "asc", "desc" (default: "desc")
	Limit     int        // Pagination limit
	Offset    int        // Pagination offset
}

// JobWithProject represents a job with its project title for dashboard display.
type JobWithProject struct {
	Job
	ProjectTitle string `json:"project_title,omitempty" db:"project_title"`
}
