// Package devseed creates predictable development data: a couple of users, an
// organization, projects, and jobs in every lifecycle state. It is idempotent
// so repeated runs against the same database converge instead of duplicating.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/data"
	"github.com/linkforge/linkforge-api/internal/domain/model"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB       *sql.DB
	users    *data.UserRepo
	orgs     *data.OrgRepo
	projects *data.ProjectRepo
	jobs     *data.JobRepo
}

// NewServices constructs the repositories used for seeding from the provided DB.
func NewServices(db *sql.DB) Services {
	return Services{
		DB:       db,
		users:    data.NewUserRepo(db),
		orgs:     data.NewOrgRepo(db, data.RepoConfig{}),
		projects: data.NewProjectRepo(db),
		jobs:     data.NewJobRepo(db, data.RepoConfig{}),
	}
}

// Run executes the full development seeding workflow against the provided DB.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	owner, err := svcs.users.GetOrCreateByEmail(ctx, "dev@linkforge.local")
	if err != nil {
		return fmt.Errorf("seed owner user: %w", err)
	}

	editor, err := svcs.users.GetOrCreateByEmail(ctx, "editor@linkforge.local")
	if err != nil {
		return fmt.Errorf("seed editor user: %w", err)
	}

	org, err := seedOrg(ctx, svcs, owner.ID, editor.ID, logger)
	if err != nil {
		return err
	}

	projects, err := seedProjects(ctx, svcs, owner.ID, org.ID, logger)
	if err != nil {
		return err
	}

	if err := seedJobs(ctx, svcs, owner.ID, projects, logger); err != nil {
		return err
	}

	if logger != nil {
		logger.InfoContext(ctx, "development data seeded",
			"owner", owner.Email,
			"org", org.Name,
			"projects", len(projects),
		)
	}
	return nil
}

const seedOrgName = "LinkForge Dev Team"

func seedOrg(
	ctx context.Context,
	svcs Services,
	ownerID, editorID string,
	logger *slog.Logger,
) (*model.Organization, error) {
	existing, err := svcs.orgs.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list orgs: %w", err)
	}
	for _, org := range existing {
		if org.Name == seedOrgName {
			return org, nil
		}
	}

	org, err := svcs.orgs.Create(ctx, ownerID, &model.CreateOrgRequest{Name: seedOrgName})
	if err != nil {
		return nil, fmt.Errorf("create org: %w", err)
	}

	if err := svcs.orgs.AddMember(ctx, org.ID, editorID, model.OrgRoleMember); err != nil {
		// Membership may already exist from a partial prior run.
		if logger != nil {
			logger.WarnContext(ctx, "failed to add editor to seed org", "error", err)
		}
	}

	return org, nil
}

type seedProject struct {
	Title   string
	SiteURL string
	Sheet   string
	InOrg   bool
}

func seedProjectDefs() []seedProject {
	return []seedProject{
		{
			Title:   "Gardening Blog",
			SiteURL: "https://garden.example.com",
			Sheet:   "https://docs.google.com/spreadsheets/d/garden-cornerstone",
			InOrg:   true,
		},
		{
			Title:   "SaaS Marketing Site",
			SiteURL: "https://saas.example.com",
			Sheet:   "https://docs.google.com/spreadsheets/d/saas-cornerstone",
			InOrg:   true,
		},
		{
			Title:   "Personal Portfolio",
			SiteURL: "https://me.example.com",
		},
	}
}

func seedProjects(
	ctx context.Context,
	svcs Services,
	userID, orgID string,
	logger *slog.Logger,
) ([]*model.Project, error) {
	existing, err := svcs.projects.ListByUser(ctx, model.ProjectListOptions{UserID: userID, Limit: 100})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	byTitle := make(map[string]*model.Project, len(existing))
	for _, p := range existing {
		byTitle[p.Title] = p
	}

	defs := seedProjectDefs()
	out := make([]*model.Project, 0, len(defs))
	for _, def := range defs {
		if p, ok := byTitle[def.Title]; ok {
			out = append(out, p)
			continue
		}

		req := &model.CreateProjectRequest{
			Title:   def.Title,
			SiteURL: def.SiteURL,
		}
		if def.Sheet != "" {
			sheet := def.Sheet
			req.CornerstoneSheet = &sheet
		}
		if def.InOrg {
			id := orgID
			req.OrgID = &id
		}

		p, createErr := svcs.projects.Create(ctx, userID, req)
		if createErr != nil {
			return nil, fmt.Errorf("create project %q: %w", def.Title, createErr)
		}
		if logger != nil {
			logger.InfoContext(ctx, "seeded project", "title", p.Title)
		}
		out = append(out, p)
	}

	return out, nil
}

func seedJobs(
	ctx context.Context,
	svcs Services,
	userID string,
	projects []*model.Project,
	logger *slog.Logger,
) error {
	if len(projects) == 0 {
		return nil
	}

	stats, err := svcs.jobs.Stats(ctx, &userID)
	if err != nil {
		return fmt.Errorf("job stats: %w", err)
	}
	if stats.Queued+stats.Processing+stats.Done+stats.Error > 0 {
		// Jobs already present; don't pile more on every seed run.
		return nil
	}

	project := projects[0]

	// One job left queued for the scheduler to pick up.
	if _, createErr := svcs.jobs.Create(ctx, userID, &model.CreateJobRequest{
		ProjectID:  project.ID,
		Title:      "How to prune roses",
		ArticleDoc: sampleArticle("How to prune roses"),
	}); createErr != nil {
		return fmt.Errorf("create queued job: %w", createErr)
	}

	// One job driven through the full lifecycle to a done state.
	done, err := svcs.jobs.Create(ctx, userID, &model.CreateJobRequest{
		ProjectID:  project.ID,
		Title:      "Composting basics",
		ArticleDoc: sampleArticle("Composting basics"),
	})
	if err != nil {
		return fmt.Errorf("create done job: %w", err)
	}
	if _, err := svcs.jobs.Claim(ctx, done.ID); err != nil {
		return fmt.Errorf("claim done job: %w", err)
	}
	if _, err := svcs.jobs.Finalize(ctx, done.ID, core.FinalizeJobParams{
		Status:   model.JobStatusDone,
		AnchorsN: 2,
		Anchors: model.AnchorList{
			{Slug: "soil-health", Phrase: "healthy soil"},
			{Slug: "mulching", Phrase: "mulch in autumn"},
		},
	}); err != nil {
		return fmt.Errorf("finalize done job: %w", err)
	}

	// One job finalized as an error so the failure path shows up in the UI.
	failed, err := svcs.jobs.Create(ctx, userID, &model.CreateJobRequest{
		ProjectID:  project.ID,
		Title:      "Winter vegetable guide",
		ArticleDoc: sampleArticle("Winter vegetable guide"),
	})
	if err != nil {
		return fmt.Errorf("create failed job: %w", err)
	}
	if _, err := svcs.jobs.Claim(ctx, failed.ID); err != nil {
		return fmt.Errorf("claim failed job: %w", err)
	}
	errMsg := "workflow engine timed out after 120s"
	if _, err := svcs.jobs.Finalize(ctx, failed.ID, core.FinalizeJobParams{
		Status:       model.JobStatusError,
		ErrorMessage: &errMsg,
	}); err != nil {
		return fmt.Errorf("finalize failed job: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "seeded jobs", "project", project.Title, "count", 3)
	}
	return nil
}

func sampleArticle(title string) string {
	slug := strings.ToLower(strings.ReplaceAll(title, " ", "-"))
	return "https://docs.google.com/document/d/dev-" + slug
}
