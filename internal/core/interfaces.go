package core

import (
	"context"
	"time"

	"github.com/linkforge/linkforge-api/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// FinalizeJobParams carries the terminal values written when a job completes.
type FinalizeJobParams struct {
	Status          model.JobStatus
	ErrorMessage    *string
	AnchorsN        int
	Anchors         model.AnchorList
	OriginalHTMLURL *string
	UpdatedHTMLURL  *string
}

// ReclaimStaleJobsParams groups parameters for ReclaimStaleProcessing to keep param count ≤3.
type ReclaimStaleJobsParams struct {
	MaxAge      time.Duration
	MaxAttempts int
	BatchSize   int
}

// ReclaimStaleResult reports what a ReclaimStaleProcessing pass did.
type ReclaimStaleResult struct {
	Requeued int64
	Errored  int64
}

// Total returns the number of rows touched by the pass.
func (r ReclaimStaleResult) Total() int64 {
	return r.Requeued + r.Errored
}

// JobRepository defines the interface for job data operations.
type JobRepository interface {
	Create(ctx context.Context, userID string, req *model.CreateJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	Claim(ctx context.Context, id string) (*model.Job, error)
	Finalize(ctx context.Context, id string, p FinalizeJobParams) (*model.Job, error)
	OverrideStatus(ctx context.Context, id string, status model.JobStatus, errMsg *string) (*model.Job, error)
	ListQueued(ctx context.Context, limit int) ([]*model.Job, error)
	List(ctx context.Context, opts *model.JobListOptions) ([]*model.JobWithProject, error)
	Stats(ctx context.Context, userID *string) (*model.JobStats, error)
	Delete(ctx context.Context, id string) error
	WaitForNotification(ctx context.Context) (string, error)
	ReclaimStaleProcessing(ctx context.Context, params ReclaimStaleJobsParams) (ReclaimStaleResult, error)
}

// ProjectRepository defines the interface for project data operations.
type ProjectRepository interface {
	Create(ctx context.Context, userID string, req *model.CreateProjectRequest) (*model.Project, error)
	GetByID(ctx context.Context, id string) (*model.Project, error)
	ListByUser(ctx context.Context, opts model.ProjectListOptions) ([]*model.Project, error)
	Update(ctx context.Context, id string, req model.UpdateProjectRequest) (*model.Project, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetOrCreateByEmail(ctx context.Context, email string) (*model.User, error)
}

// PlanRepository defines the interface for plan data operations.
type PlanRepository interface {
	GetByStripePriceID(ctx context.Context, priceID string) (*model.Plan, error)
	GetFree(ctx context.Context) (*model.Plan, error)
	List(ctx context.Context) ([]*model.Plan, error)
}

// UsageRepository defines the interface for usage metering operations.
type UsageRepository interface {
	Upsert(ctx context.Context, p model.UpsertUsageParams) (*model.Usage, error)
	GetCurrent(ctx context.Context, userID string, at time.Time) (*model.Usage, error)
	ConsumeQuota(ctx context.Context, userID string, at time.Time) error
}

// OrgRepository defines the interface for organization data operations.
type OrgRepository interface {
	Create(ctx context.Context, ownerID string, req *model.CreateOrgRequest) (*model.Organization, error)
	GetByID(ctx context.Context, id string) (*model.Organization, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Organization, error)
	GetMember(ctx context.Context, orgID, userID string) (*model.OrgMember, error)
	ListMembers(ctx context.Context, orgID string) ([]*model.OrgMember, error)
	AddMember(ctx context.Context, orgID, userID string, role model.OrgRole) error
	RemoveMember(ctx context.Context, orgID, userID string) error
	CreateInvite(ctx context.Context, orgID, token string, req *model.CreateInviteRequest, expiresAt time.Time) (*model.OrgInvite, error)
	GetInviteByToken(ctx context.Context, token string) (*model.OrgInvite, error)
	ListInvites(ctx context.Context, orgID string) ([]*model.OrgInvite, error)
	AcceptInvite(ctx context.Context, token, userID string) (*model.OrgInvite, error)
	DeleteExpiredInvites(ctx context.Context, batchSize int) (int64, error)
}
