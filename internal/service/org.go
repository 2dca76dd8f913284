package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/data"
	"github.com/linkforge/linkforge-api/internal/domain/model"
	apperrors "github.com/linkforge/linkforge-api/internal/errors"
)

// inviteTTL is how long an invite can sit unaccepted.
const inviteTTL = 7 * 24 * time.Hour

// OrgServiceOptions groups dependencies for OrgService.
type OrgServiceOptions struct {
	Repo   core.OrgRepository // Required: org repository
	Logger *slog.Logger       // Optional: structured logger
	Now    func() time.Time   // Optional: clock override for tests
}

// OrgService provides business logic for organizations, membership, and invites.
type OrgService struct {
	repo   core.OrgRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewOrgService constructs a new OrgService.
func NewOrgService(opts OrgServiceOptions) (*OrgService, error) {
	if opts.Repo == nil {
		return nil, errors.New("OrgRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "org_service")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &OrgService{repo: opts.Repo, logger: logger, now: now}, nil
}

// MustNewOrgService constructs a new OrgService and panics on error.
func MustNewOrgService(opts OrgServiceOptions) *OrgService {
	svc, err := NewOrgService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create OrgService: %v", err))
	}
	return svc
}

// Create creates an organization with the user as its owner.
func (s *OrgService) Create(ctx context.Context, ownerID string, req *model.CreateOrgRequest) (*model.Organization, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	org, err := s.repo.Create(ctx, ownerID, req)
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "organization created", "id", org.ID, "owner_id", ownerID)
	}
	return org, nil
}

// ListForUser returns the organizations the user belongs to.
func (s *OrgService) ListForUser(ctx context.Context, userID string) ([]*model.Organization, error) {
	orgs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

// GetForMember retrieves an organization, requiring the caller to be a member.
// Non-members read as not found.
func (s *OrgService) GetForMember(ctx context.Context, orgID, userID string) (*model.Organization, error) {
	if _, err := s.requireMember(ctx, orgID, userID); err != nil {
		return nil, err
	}

	org, err := s.repo.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, data.ErrOrgNotFound) {
			return nil, apperrors.NotFoundf("organization %s not found", orgID)
		}
		return nil, fmt.Errorf("get organization %s: %w", orgID, err)
	}
	return org, nil
}

// ListMembers returns the organization's members, owner first.
func (s *OrgService) ListMembers(ctx context.Context, orgID, callerID string) ([]*model.OrgMember, error) {
	if _, err := s.requireMember(ctx, orgID, callerID); err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", orgID, err)
	}
	return members, nil
}

// RemoveMember removes a member from the organization. Only owners and admins
// may remove others; any member may remove themselves. The owner can never be
// removed.
func (s *OrgService) RemoveMember(ctx context.Context, orgID, callerID, memberID string) error {
	caller, err := s.requireMember(ctx, orgID, callerID)
	if err != nil {
		return err
	}
	if callerID != memberID && caller.Role == model.OrgRoleMember {
		return apperrors.Validation("only owners and admins can remove other members")
	}

	err = s.repo.RemoveMember(ctx, orgID, memberID)
	switch {
	case err == nil:
		if s.logger != nil {
			s.logger.InfoContext(ctx, "member removed", "org_id", orgID, "user_id", memberID)
		}
		return nil
	case errors.Is(err, data.ErrOwnerImmutable):
		return apperrors.Conflict("the organization owner cannot be removed")
	case errors.Is(err, data.ErrOrgNotFound):
		return apperrors.NotFoundf("member %s not found in organization %s", memberID, orgID)
	default:
		return fmt.Errorf("remove member %s from %s: %w", memberID, orgID, err)
	}
}

// Invite creates a pending invitation for an email address. Only owners and
// admins may invite.
func (s *OrgService) Invite(ctx context.Context, orgID, callerID string, req *model.CreateInviteRequest) (*model.OrgInvite, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	caller, err := s.requireMember(ctx, orgID, callerID)
	if err != nil {
		return nil, err
	}
	if caller.Role == model.OrgRoleMember {
		return nil, apperrors.Validation("only owners and admins can invite members")
	}

	token := uuid.NewString()
	invite, err := s.repo.CreateInvite(ctx, orgID, token, req, s.now().Add(inviteTTL))
	if err != nil {
		return nil, fmt.Errorf("create invite for %s: %w", orgID, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "invite created",
			"org_id", orgID,
			"role", invite.Role,
			"expires_at", invite.ExpiresAt,
		)
	}
	return invite, nil
}

// ListInvites returns the organization's pending invites.
func (s *OrgService) ListInvites(ctx context.Context, orgID, callerID string) ([]*model.OrgInvite, error) {
	caller, err := s.requireMember(ctx, orgID, callerID)
	if err != nil {
		return nil, err
	}
	if caller.Role == model.OrgRoleMember {
		return nil, apperrors.Validation("only owners and admins can view invites")
	}

	invites, err := s.repo.ListInvites(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list invites for %s: %w", orgID, err)
	}
	return invites, nil
}

// AcceptInvite redeems an invite token for the user. The session email must
// match the invited address; tokens are single use and expire.
func (s *OrgService) AcceptInvite(ctx context.Context, token, userID, userEmail string) (*model.OrgInvite, error) {
	invite, err := s.repo.GetInviteByToken(ctx, token)
	if err != nil {
		if errors.Is(err, data.ErrInviteNotFound) {
			return nil, apperrors.NotFound("invite not found")
		}
		return nil, fmt.Errorf("get invite: %w", err)
	}

	if !strings.EqualFold(invite.Email, userEmail) {
		return nil, apperrors.Validation("this invite was issued for a different email address")
	}

	accepted, err := s.repo.AcceptInvite(ctx, token, userID)
	switch {
	case err == nil:
		if s.logger != nil {
			s.logger.InfoContext(ctx, "invite accepted", "org_id", accepted.OrgID, "user_id", userID)
		}
		return accepted, nil
	case errors.Is(err, data.ErrInviteNotAcceptable):
		return nil, apperrors.Conflict("invite is expired or already accepted")
	case errors.Is(err, data.ErrInviteNotFound):
		return nil, apperrors.NotFound("invite not found")
	default:
		return nil, fmt.Errorf("accept invite: %w", err)
	}
}

// requireMember loads the caller's membership, mapping absence to not found.
func (s *OrgService) requireMember(ctx context.Context, orgID, userID string) (*model.OrgMember, error) {
	member, err := s.repo.GetMember(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, data.ErrOrgNotFound) {
			return nil, apperrors.NotFoundf("organization %s not found", orgID)
		}
		return nil, fmt.Errorf("get membership for %s: %w", orgID, err)
	}
	return member, nil
}
