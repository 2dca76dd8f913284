package model

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// OrgRole represents a member's role inside an organization.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type OrgRole string

const (
	// OrgRoleOwner is the creating member; exactly one per organization.
	OrgRoleOwner OrgRole = "owner"
	// OrgRoleAdmin may manage members and invites.
	OrgRoleAdmin OrgRole = "admin"
	// OrgRoleMember is a regular member.
	OrgRoleMember OrgRole = "member"
)

// UnmarshalText implements encoding.TextUnmarshaler for OrgRole.
func (r *OrgRole) UnmarshalText(text []byte) error {
	v := OrgRole(strings.ToLower(strings.TrimSpace(string(text))))
	if v.Valid() {
		*r = v
		return nil
	}
	return fmt.Errorf("invalid OrgRole: %q", string(text))
}

// Valid returns true if the OrgRole is valid.
func (r OrgRole) Valid() bool {
	return r == OrgRoleOwner || r == OrgRoleAdmin || r == OrgRoleMember
}

// Organization represents a team that shares projects.
type Organization struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	OwnerID   string    `json:"owner_id"   db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OrgMember represents a user's membership in an organization.
type OrgMember struct {
	OrgID     string    `json:"org_id"     db:"org_id"`
	UserID    string    `json:"user_id"    db:"user_id"`
	Role      OrgRole   `json:"role"       db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OrgInvite represents a pending invitation to join an organization.
type OrgInvite struct {
	ID         string     `json:"id"                    db:"id"`
	OrgID      string     `json:"org_id"                db:"org_id"`
	Email      string     `json:"email"                 db:"email"`
	Role       OrgRole    `json:"role"                  db:"role"`
	Token      string     `json:"token"                 db:"token"`
	ExpiresAt  time.Time  `json:"expires_at"            db:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	CreatedAt  time.Time  `json:"created_at"            db:"created_at"`
}

// Expired reports whether the invite can no longer be accepted at now.
func (i OrgInvite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// CreateOrgRequest represents a request to create an organization.
type CreateOrgRequest struct {
	Name string `json:"name"`
}

// Validate validates the CreateOrgRequest fields.
func (r *CreateOrgRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > 100 {
		return errors.New("name must be at most 100 characters")
	}
	return nil
}

// CreateInviteRequest represents a request to invite a user to an organization.
type CreateInviteRequest struct {
	Email string  `json:"email"`
	Role  OrgRole `json:"role"`
}

// Validate validates the CreateInviteRequest fields. Owners are created, never invited.
func (r *CreateInviteRequest) Validate() error {
	if _, err := mail.ParseAddress(strings.TrimSpace(r.Email)); err != nil {
		return errors.New("email must be a valid address")
	}
	if r.Role == "" {
		r.Role = OrgRoleMember
	}
	if !r.Role.Valid() || r.Role == OrgRoleOwner {
		return errors.New("role must be admin or member")
	}
	return nil
}
