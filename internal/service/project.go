package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/data"
	"github.com/linkforge/linkforge-api/internal/domain/model"
	apperrors "github.com/linkforge/linkforge-api/internal/errors"
)

// ProjectServiceOptions groups dependencies for ProjectService.
type ProjectServiceOptions struct {
	Repo   core.ProjectRepository // Required: project repository
	Logger *slog.Logger           // Optional: structured logger
}

// ProjectService provides business logic for project operations.
type ProjectService struct {
	repo   core.ProjectRepository
	logger *slog.Logger
}

// NewProjectService constructs a new ProjectService.
func NewProjectService(opts ProjectServiceOptions) (*ProjectService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ProjectRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "project_service")
	}

	return &ProjectService{repo: opts.Repo, logger: logger}, nil
}

// MustNewProjectService constructs a new ProjectService and panics on error.
func MustNewProjectService(opts ProjectServiceOptions) *ProjectService {
	svc, err := NewProjectService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create ProjectService: %v", err))
	}
	return svc
}

// Create creates a new project owned by the user.
func (s *ProjectService) Create(ctx context.Context, userID string, req *model.CreateProjectRequest) (*model.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	project, err := s.repo.Create(ctx, userID, req)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "project created", "id", project.ID, "user_id", userID)
	}

	return project, nil
}

// GetByID retrieves a project by its ID.
func (s *ProjectService) GetByID(ctx context.Context, id string) (*model.Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrProjectNotFound) {
			return nil, apperrors.NotFoundf("project %s not found", id)
		}
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return project, nil
}

// GetOwned retrieves a project and verifies the user owns it. Projects that
// exist but belong to someone else read as not found, so IDs can't be probed.
func (s *ProjectService) GetOwned(ctx context.Context, id, userID string) (*model.Project, error) {
	project, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.UserID != userID {
		return nil, apperrors.NotFoundf("project %s not found", id)
	}
	return project, nil
}

// List retrieves the user's projects with optional search and pagination.
func (s *ProjectService) List(ctx context.Context, opts model.ProjectListOptions) ([]*model.Project, error) {
	projects, err := s.repo.ListByUser(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Update modifies a project's URLs after verifying ownership.
func (s *ProjectService) Update(ctx context.Context, id, userID string, req model.UpdateProjectRequest) (*model.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	if _, err := s.GetOwned(ctx, id, userID); err != nil {
		return nil, err
	}

	project, err := s.repo.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, data.ErrProjectNotFound) {
			return nil, apperrors.NotFoundf("project %s not found", id)
		}
		return nil, fmt.Errorf("update project %s: %w", id, err)
	}
	return project, nil
}

// Delete removes a project and its jobs after verifying ownership.
func (s *ProjectService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.GetOwned(ctx, id, userID); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if !deleted {
		return apperrors.NotFoundf("project %s not found", id)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "project deleted", "id", id, "user_id", userID)
	}
	return nil
}
