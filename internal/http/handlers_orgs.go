package httpx

import (
	"net/http"

	"github.com/linkforge/linkforge-api/internal/domain/model"
	"github.com/linkforge/linkforge-api/internal/service"
)

// OrgHandlers provides HTTP handlers for organization operations.
type OrgHandlers struct {
	Svc *service.OrgService
}

// Create handles POST /api/orgs.
func (h *OrgHandlers) Create(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req model.CreateOrgRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	org, err := h.Svc.Create(r.Context(), session.UserID, &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, org)
}

// List handles GET /api/orgs for the authenticated user's organizations.
func (h *OrgHandlers) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	orgs, err := h.Svc.ListForUser(r.Context(), session.UserID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, orgs)
}

// Get handles GET /api/orgs/{id}.
func (h *OrgHandlers) Get(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	org, err := h.Svc.GetForMember(r.Context(), r.PathValue("id"), session.UserID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, org)
}

// ListMembers handles GET /api/orgs/{id}/members.
func (h *OrgHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	members, err := h.Svc.ListMembers(r.Context(), r.PathValue("id"), session.UserID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, members)
}

// RemoveMember handles DELETE /api/orgs/{id}/members/{userID}.
func (h *OrgHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	err := h.Svc.RemoveMember(r.Context(), r.PathValue("id"), session.UserID, r.PathValue("userID"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateInvite handles POST /api/orgs/{id}/invites.
func (h *OrgHandlers) CreateInvite(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req model.CreateInviteRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	invite, err := h.Svc.Invite(r.Context(), r.PathValue("id"), session.UserID, &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, invite)
}

// ListInvites handles GET /api/orgs/{id}/invites.
func (h *OrgHandlers) ListInvites(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	invites, err := h.Svc.ListInvites(r.Context(), r.PathValue("id"), session.UserID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, invites)
}

// AcceptInvite handles POST /api/invites/{token}/accept. The session email
// must match the invited address.
func (h *OrgHandlers) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	invite, err := h.Svc.AcceptInvite(r.Context(), r.PathValue("token"), session.UserID, session.Email)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, invite)
}
