package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/linkforge/linkforge-api/internal/data/database"
	"github.com/linkforge/linkforge-api/internal/data/pgxutil"
	"github.com/linkforge/linkforge-api/internal/domain/model"
)

// ErrProjectNotFound is returned when a project is not found.
var ErrProjectNotFound = errors.New("project not found")

// ProjectRepo provides database operations for projects.
type ProjectRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewProjectRepo creates a new ProjectRepo with real time provider.
func NewProjectRepo(db *sql.DB) *ProjectRepo {
	return &ProjectRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewProjectRepoWithTimeProvider creates a new ProjectRepo with a custom time provider (useful for tests).
func NewProjectRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ProjectRepo {
	return &ProjectRepo{DB: db, timeProvider: tp}
}

// SQL query constants for static queries (no dynamic WHERE/ORDER BY).
const (
	projectGetByIDQuery = `
		SELECT id, user_id, org_id, title, site_url, cornerstone_sheet, created_at, updated_at
		FROM projects
		WHERE id = $1`
)

// projectColumns returns the standard column list for project queries.
func projectColumns() []string {
	return []string{
		"id",
		"user_id",
		"org_id",
		"title",
		"site_url",
		"cornerstone_sheet",
		"created_at",
		"updated_at",
	}
}

// Create inserts a new project owned by the given user.
func (r *ProjectRepo) Create(ctx context.Context, userID string, req *model.CreateProjectRequest) (*model.Project, error) {
	if req == nil {
		return nil, errors.New("create project request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cornerstone := req.CornerstoneSheet
	if cornerstone != nil && strings.TrimSpace(*cornerstone) == "" {
		cornerstone = nil
	}

	createdAt := r.timeProvider.Now().UTC()
	var out model.Project
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO projects (
				user_id, org_id, title, site_url, cornerstone_sheet, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $6
			) RETURNING id, user_id, org_id, title, site_url, cornerstone_sheet, created_at, updated_at
		`,
			userID,
			req.OrgID,
			strings.TrimSpace(req.Title),
			req.SiteURL,
			cornerstone,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Project])
		return err
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByID retrieves a project by ID.
func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, projectGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		project, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Project])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project by ID: %w", err)
	}
	return &project, nil
}

// ListByUser retrieves a user's projects, newest first, with optional title search.
func (r *ProjectRepo) ListByUser(ctx context.Context, opts model.ProjectListOptions) ([]*model.Project, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(projectColumns()...),
		database.WithCondition(database.WhereCond("user_id", database.Equal, opts.UserID)),
		database.WithOrderBy("created_at", "DESC"),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}
	if opts.Q != nil && strings.TrimSpace(*opts.Q) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("title", database.ILike, "%"+strings.TrimSpace(*opts.Q)+"%"),
		))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("projects", queryOpts...))

	var rowsOut []model.Project
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Project])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	res := make([]*model.Project, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Update updates a project's URLs.
func (r *ProjectRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateProjectRequest,
) (*model.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.Project
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		setClause, args := r.buildUpdateClause(req)
		args = append(args, id)
		query := "UPDATE projects SET " + setClause + " WHERE id = $" + strconv.Itoa(
			len(args),
		) + " RETURNING id, user_id, org_id, title, site_url, cornerstone_sheet, created_at, updated_at"
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Project])
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return &out, nil
}

// buildUpdateClause builds the SQL SET clause and args for updating a project.
func (r *ProjectRepo) buildUpdateClause(req model.UpdateProjectRequest) (string, []any) {
	setParts := make([]string, 0, 3)
	args := make([]any, 0, 4)
	nextIdx := func() int { return len(args) + 1 }

	if req.SiteURL != nil {
		setParts = append(setParts, fmt.Sprintf("site_url = $%d", nextIdx()))
		args = append(args, *req.SiteURL)
	}
	if req.CornerstoneSheet != nil {
		if strings.TrimSpace(*req.CornerstoneSheet) == "" {
			setParts = append(setParts, "cornerstone_sheet = NULL")
		} else {
			setParts = append(setParts, fmt.Sprintf("cornerstone_sheet = $%d", nextIdx()))
			args = append(args, *req.CornerstoneSheet)
		}
	}

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", nextIdx()))
	args = append(args, r.timeProvider.Now().UTC())

	return strings.Join(setParts, ", "), args
}

// Delete deletes a project by ID. Jobs cascade at the schema level.
func (r *ProjectRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}
	return rows > 0, nil
}
