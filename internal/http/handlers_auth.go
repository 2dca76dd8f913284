package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/linkforge/linkforge-api/internal/domain/auth"
	"github.com/linkforge/linkforge-api/internal/domain/model"
	"github.com/linkforge/linkforge-api/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	Login(ctx context.Context, email string) (*service.LoginResult, error)
	Resolve(ctx context.Context, sessionID string) (domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, sess domainauth.Session) (*model.User, error)
}

// SessionCookieConfig controls how the session cookie is issued.
type SessionCookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc    AuthServiceInterface
	Cookie SessionCookieConfig
	Logger *slog.Logger
}

type loginRequest struct {
	Email string `json:"email"`
}

// Login handles POST /api/auth/login. Logging in with an unknown email
// creates the account.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Login(r.Context(), req.Email)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.setSessionCookie(w, result.Session)
	WriteJSON(w, http.StatusOK, result.User)
}

// Logout handles POST /api/auth/logout. Always clears the cookie, even when
// the session is already gone.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.Cookie.Name); err == nil {
		if err := h.Svc.Logout(r.Context(), cookie.Value); err != nil && h.Logger != nil {
			h.Logger.WarnContext(r.Context(), "logout failed", "error", err)
		}
	}

	h.clearSessionCookie(w)
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me handles GET /api/me for the authenticated user.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	user, err := h.Svc.CurrentUser(r.Context(), *session)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, sess domainauth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    sess.ID,
		Path:     "/",
		Domain:   h.Cookie.Domain,
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   h.Cookie.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
