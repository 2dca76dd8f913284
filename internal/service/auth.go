package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkforge/linkforge-api/internal/core"
	domainauth "github.com/linkforge/linkforge-api/internal/domain/auth"
	"github.com/linkforge/linkforge-api/internal/domain/model"
	apperrors "github.com/linkforge/linkforge-api/internal/errors"
	"github.com/linkforge/linkforge-api/internal/ports"
)

// defaultSessionTTL is how long a session lives without re-login.
const defaultSessionTTL = 7 * 24 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Users      core.UserRepository // Required: user repository
	Sessions   ports.SessionStore  // Required: session persistence
	SessionTTL time.Duration       // Optional: session lifetime (default 7 days)
	Logger     *slog.Logger        // Optional: structured logger
}

// AuthService issues and resolves sessions. Identity is email based: logging
// in with a new address creates the account.
type AuthService struct {
	users      core.UserRepository
	sessions   ports.SessionStore
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Users == nil {
		return nil, errors.New("UserRepository is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("SessionStore is required")
	}

	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "auth_service")
	}

	return &AuthService{
		users:      opts.Users,
		sessions:   opts.Sessions,
		sessionTTL: ttl,
		logger:     logger,
	}, nil
}

// MustNewAuthService constructs a new AuthService and panics on error.
func MustNewAuthService(opts AuthServiceOptions) *AuthService {
	svc, err := NewAuthService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create AuthService: %v", err))
	}
	return svc
}

// LoginResult carries the user and their new session.
type LoginResult struct {
	User    *model.User
	Session domainauth.Session
}

// Login resolves the email to a user (creating one on first sight) and opens
// a fresh session for them.
func (s *AuthService) Login(ctx context.Context, email string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.Validation("email must be a valid address")
	}

	user, err := s.users.GetOrCreateByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("resolve user for login: %w", err)
	}

	sess := domainauth.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	}

	return &LoginResult{User: user, Session: sess}, nil
}

// Resolve returns the session for the given ID, or not found when it is
// missing or expired.
func (s *AuthService) Resolve(ctx context.Context, sessionID string) (domainauth.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return domainauth.Session{}, apperrors.NotFound("session not found")
		}
		return domainauth.Session{}, fmt.Errorf("resolve session: %w", err)
	}
	return sess, nil
}

// Logout deletes the session. Deleting an unknown session is a no-op.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CurrentUser loads the account behind a session.
func (s *AuthService) CurrentUser(ctx context.Context, sess domainauth.Session) (*model.User, error) {
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", sess.UserID, err)
	}
	return user, nil
}
