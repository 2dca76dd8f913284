package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/linkforge/linkforge-api/internal/data/pgxutil"
	"github.com/linkforge/linkforge-api/internal/domain/model"
)

var (
	// ErrOrgNotFound is returned when an organization is not found.
	ErrOrgNotFound = errors.New("organization not found")
	// ErrInviteNotFound is returned when an invite token does not exist.
	ErrInviteNotFound = errors.New("invite not found")
	// ErrInviteNotAcceptable is returned when an invite is expired or already used.
	ErrInviteNotAcceptable = errors.New("invite is expired or already accepted")
	// ErrOwnerImmutable is returned when attempting to remove the org owner.
	ErrOwnerImmutable = errors.New("organization owner cannot be removed")
)

// OrgRepo provides database operations for organizations, members, and invites.
type OrgRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewOrgRepo creates a new OrgRepo.
func NewOrgRepo(db *sql.DB, cfg RepoConfig) *OrgRepo {
	return &OrgRepo{DB: db, timeProvider: cfg.timeProvider()}
}

const (
	orgColumns    = `id, name, owner_id, created_at`
	memberColumns = `org_id, user_id, role, created_at`
	inviteColumns = `id, org_id, email, role, token, expires_at, accepted_at, created_at`
)

// Create inserts an organization and its owner membership in one transaction.
func (r *OrgRepo) Create(ctx context.Context, ownerID string, req *model.CreateOrgRequest) (*model.Organization, error) {
	if req == nil {
		return nil, errors.New("create org request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var org model.Organization
	err := pgxutil.WithPgxTx(ctx, r.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			INSERT INTO organizations (name, owner_id)
			VALUES ($1, $2)
			RETURNING `+orgColumns, req.Name, ownerID)
		if err != nil {
			return fmt.Errorf("insert organization: %w", err)
		}
		org, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Organization])
		rows.Close()
		if err != nil {
			return fmt.Errorf("collect organization: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO org_members (org_id, user_id, role)
			VALUES ($1, $2, 'owner')`, org.ID, ownerID); err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByID retrieves an organization by ID.
func (r *OrgRepo) GetByID(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+orgColumns+`
			FROM organizations
			WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		org, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Organization])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

// ListByUser retrieves the organizations a user belongs to, newest first.
func (r *OrgRepo) ListByUser(ctx context.Context, userID string) ([]*model.Organization, error) {
	var rowsOut []model.Organization
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT o.id, o.name, o.owner_id, o.created_at
			FROM organizations o
			JOIN org_members m ON m.org_id = o.id
			WHERE m.user_id = $1
			ORDER BY o.created_at DESC`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Organization])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	res := make([]*model.Organization, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// GetMember retrieves one membership row.
func (r *OrgRepo) GetMember(ctx context.Context, orgID, userID string) (*model.OrgMember, error) {
	var member model.OrgMember
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+memberColumns+`
			FROM org_members
			WHERE org_id = $1 AND user_id = $2`, orgID, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		member, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.OrgMember])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &member, nil
}

// ListMembers retrieves an organization's members, owner first, then join order.
func (r *OrgRepo) ListMembers(ctx context.Context, orgID string) ([]*model.OrgMember, error) {
	var rowsOut []model.OrgMember
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+memberColumns+`
			FROM org_members
			WHERE org_id = $1
			ORDER BY (role = 'owner') DESC, created_at ASC`, orgID)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.OrgMember])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	res := make([]*model.OrgMember, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// AddMember inserts a membership row.
func (r *OrgRepo) AddMember(ctx context.Context, orgID, userID string, role model.OrgRole) error {
	if !role.Valid() {
		return fmt.Errorf("invalid org role: %s", role)
	}
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO org_members (org_id, user_id, role)
		VALUES ($1, $2, $3)`, orgID, userID, role); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row. The role guard protects the owner.
func (r *OrgRepo) RemoveMember(ctx context.Context, orgID, userID string) error {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM org_members
		WHERE org_id = $1 AND user_id = $2 AND role != 'owner'
	`, orgID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove member rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	if _, err := r.GetMember(ctx, orgID, userID); err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return ErrOrgNotFound
		}
		return fmt.Errorf("re-check member after remove attempt: %w", err)
	}
	return ErrOwnerImmutable
}

// CreateInvite inserts an invite row with the given pre-generated token.
func (r *OrgRepo) CreateInvite(
	ctx context.Context,
	orgID, token string,
	req *model.CreateInviteRequest,
	expiresAt time.Time,
) (*model.OrgInvite, error) {
	if req == nil {
		return nil, errors.New("create invite request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var invite model.OrgInvite
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO org_invites (org_id, email, role, token, expires_at)
			VALUES ($1, lower($2), $3, $4, $5)
			RETURNING `+inviteColumns,
			orgID, req.Email, req.Role, token, expiresAt.UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		invite, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.OrgInvite])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}
	return &invite, nil
}

// GetInviteByToken retrieves an invite by token.
func (r *OrgRepo) GetInviteByToken(ctx context.Context, token string) (*model.OrgInvite, error) {
	var invite model.OrgInvite
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+inviteColumns+`
			FROM org_invites
			WHERE token = $1`, token)
		if err != nil {
			return err
		}
		defer rows.Close()
		invite, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.OrgInvite])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return &invite, nil
}

// ListInvites retrieves an organization's pending invites.
func (r *OrgRepo) ListInvites(ctx context.Context, orgID string) ([]*model.OrgInvite, error) {
	var rowsOut []model.OrgInvite
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+inviteColumns+`
			FROM org_invites
			WHERE org_id = $1 AND accepted_at IS NULL
			ORDER BY created_at DESC`, orgID)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.OrgInvite])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}

	res := make([]*model.OrgInvite, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// AcceptInvite marks an invite accepted and adds the membership in one
// transaction. The conditional update makes acceptance single-shot.
func (r *OrgRepo) AcceptInvite(ctx context.Context, token, userID string) (*model.OrgInvite, error) {
	now := r.timeProvider.Now().UTC()

	var invite model.OrgInvite
	err := pgxutil.WithPgxTx(ctx, r.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			UPDATE org_invites
			SET accepted_at = $2
			WHERE token = $1
			  AND accepted_at IS NULL
			  AND expires_at > $2
			RETURNING `+inviteColumns, token, now)
		if err != nil {
			return fmt.Errorf("accept invite: %w", err)
		}
		invite, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.OrgInvite])
		rows.Close()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO org_members (org_id, user_id, role)
			VALUES ($1, $2, $3)
			ON CONFLICT (org_id, user_id) DO NOTHING`,
			invite.OrgID, userID, invite.Role); err != nil {
			return fmt.Errorf("insert membership: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, lookupErr := r.GetInviteByToken(ctx, token); lookupErr != nil {
				return nil, ErrInviteNotFound
			}
			return nil, ErrInviteNotAcceptable
		}
		return nil, err
	}
	return &invite, nil
}

// DeleteExpiredInvites removes expired, unaccepted invites. Processes up to
// batchSize rows per call. Uses an advisory lock so concurrent reaper
// instances never double-touch.
func (r *OrgRepo) DeleteExpiredInvites(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithPgxTx(ctx, r.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var locked bool
		if err := tx.QueryRow(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, advisoryLockReaperDeleteInvites).Scan(&locked); err != nil {
			return fmt.Errorf("acquire advisory lock: %w", err)
		}
		if !locked {
			rowsAffected = 0
			return nil
		}

		now := r.timeProvider.Now().UTC()
		ct, err := tx.Exec(ctx, `
			DELETE FROM org_invites
			WHERE id IN (
				SELECT id FROM org_invites
				WHERE accepted_at IS NULL
				  AND expires_at < $1
				ORDER BY expires_at
				LIMIT $2
			)
		`, now, batchSize)
		if err != nil {
			return fmt.Errorf("delete expired invites: %w", err)
		}
		rowsAffected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}
