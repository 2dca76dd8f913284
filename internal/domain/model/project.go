package model

import (
	"errors"
	"strings"
	"time"
)

// ProjectListOptions describes filters for listing projects.
type ProjectListOptions struct {
	UserID string
	Q      *string
	Limit  int
	Offset int
}

// Project represents a site and its cornerstone-content sheet that jobs run against.
type Project struct {
	ID               string     `json:"id"                          db:"id"`
	UserID           string     `json:"user_id"                     db:"user_id"`
	OrgID            *string    `json:"org_id,omitempty"            db:"org_id"`
	Title            string     `json:"title"                       db:"title"`
	SiteURL          string     `json:"site_url"                    db:"site_url"`
	CornerstoneSheet *string    `json:"cornerstone_sheet,omitempty" db:"cornerstone_sheet"`
	CreatedAt        time.Time  `json:"created_at"                  db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"                  db:"updated_at"`
}

// CreateProjectRequest represents a request to create a new project.
type CreateProjectRequest struct {
	Title            string  `json:"title"`
	SiteURL          string  `json:"site_url"`
	CornerstoneSheet *string `json:"cornerstone_sheet,omitempty"`
	OrgID            *string `json:"org_id,omitempty"`
}

// Validate validates the CreateProjectRequest fields.
func (r *CreateProjectRequest) Validate() error {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return errors.New("title is required")
	}
	if len(title) > 100 {
		return errors.New("title must be at most 100 characters")
	}
	if !validHTTPURL(r.SiteURL) {
		return errors.New("site url must be a valid URL")
	}
	if r.CornerstoneSheet != nil && *r.CornerstoneSheet != "" && !validHTTPURL(*r.CornerstoneSheet) {
		return errors.New("cornerstone sheet must be a valid URL")
	}
	return nil
}

// UpdateProjectRequest represents a request to update a project's URLs.
type UpdateProjectRequest struct {
	SiteURL          *string `json:"site_url,omitempty"`
	CornerstoneSheet *string `json:"cornerstone_sheet,omitempty"`
}

// Validate validates the UpdateProjectRequest fields.
func (r *UpdateProjectRequest) Validate() error {
	if r.SiteURL == nil && r.CornerstoneSheet == nil {
		return errors.New("no fields to update")
	}
	if r.SiteURL != nil && !validHTTPURL(*r.SiteURL) {
		return errors.New("site url must be a valid URL")
	}
	if r.CornerstoneSheet != nil && *r.CornerstoneSheet != "" && !validHTTPURL(*r.CornerstoneSheet) {
		return errors.New("cornerstone sheet must be a valid URL")
	}
	return nil
}
