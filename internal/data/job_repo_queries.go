package data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/linkforge/linkforge-api/internal/data/pgxutil"
	"github.com/linkforge/linkforge-api/internal/domain/model"
)

// jobFilterQueryBuilder accumulates WHERE clauses with positional args.
type jobFilterQueryBuilder struct {
	query  string
	args   []any
	argIdx int
}

func (b *jobFilterQueryBuilder) addFilter(condition string, value any) {
	if value != nil {
		b.query += fmt.Sprintf(" AND %s = $%d", condition, b.argIdx)
		b.args = append(b.args, value)
		b.argIdx++
	}
}

// buildJobListQuery constructs the SQL query and args for the job list with filtering.
func buildJobListQuery(opts *model.JobListOptions) (string, []any) {
	if opts == nil {
		opts = &model.JobListOptions{}
	}

	builder := &jobFilterQueryBuilder{
		query: `
		SELECT
			j.id, j.project_id, j.user_id, j.title, j.article_doc, j.status,
			j.error_message, j.anchors_n, j.anchors,
			j.original_html_url, j.updated_html_url,
			j.dispatch_attempts, j.dispatched_at, j.completed_at,
			j.created_at, j.updated_at,
			COALESCE(p.title, '') as project_title
		FROM jobs j
		LEFT JOIN projects p ON p.id = j.project_id
		WHERE 1=1`,
		args:   []any{},
		argIdx: 1,
	}

	addJobListFilters(builder, opts)
	addJobListSorting(builder, opts)
	return builder.query, builder.args
}

// addJobListFilters adds filter conditions to the query builder.
func addJobListFilters(builder *jobFilterQueryBuilder, opts *model.JobListOptions) {
	if opts == nil {
		return
	}

	if opts.ProjectID != nil && *opts.ProjectID != "" {
		builder.addFilter("j.project_id", *opts.ProjectID)
	}
	if opts.UserID != nil && *opts.UserID != "" {
		builder.addFilter("j.user_id", *opts.UserID)
	}
	if opts.Status != nil {
		builder.addFilter("j.status", string(*opts.Status))
	}
}

// addJobListSorting adds sorting to the query builder.
func addJobListSorting(builder *jobFilterQueryBuilder, opts *model.JobListOptions) {
	if opts == nil {
		opts = &model.JobListOptions{}
	}

	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	sortOrder := opts.SortOrder
	if sortOrder == "" {
		sortOrder = "desc"
	}

	validSortFields := map[string]string{
		"created_at": "j.created_at",
		"status":     "j.status",
	}

	dbField, ok := validSortFields[sortBy]
	if !ok {
		builder.query += " ORDER BY j.created_at DESC, j.id DESC"
		return
	}

	if sortOrder == "asc" {
		builder.query += fmt.Sprintf(" ORDER BY %s ASC, j.id ASC", dbField)
		return
	}

	builder.query += fmt.Sprintf(" ORDER BY %s DESC, j.id DESC", dbField)
}

// List returns jobs with optional filtering and their project titles.
func (r *JobRepo) List(ctx context.Context, opts *model.JobListOptions) ([]*model.JobWithProject, error) {
	if opts == nil {
		opts = &model.JobListOptions{}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50 // Default limit
	}
	if limit > 1000 {
		limit = 1000 // Max limit
	}
	offset := max(opts.Offset, 0)

	query, args := buildJobListQuery(opts)
	argIdx := len(args) + 1
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, offset)

	var result []*model.JobWithProject
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query jobs with filters: %w", err)
		}
		defer rows.Close()

		result, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.JobWithProject])
		if err != nil {
			return fmt.Errorf("collect jobs: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}
