// Package service provides the application's business logic: authentication,
// track management and the explore feed.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"vista/internal/identity"
	"vista/internal/models"
	"vista/internal/observability"
	"vista/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// AuthService turns bearer tokens into local users. The token is verified by
// the identity provider and the matching user row is created or refreshed.
type AuthService struct {
	verifier identity.Verifier
	users    repository.UserRepository
	log      *slog.Logger
	now      func() time.Time
}

// NewAuthService returns a new AuthService.
func NewAuthService(verifier identity.Verifier, users repository.UserRepository, log *slog.Logger) *AuthService {
	return &AuthService{
		verifier: verifier,
		users:    users,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate verifies token and returns the up-to-date local user. Any
// verification failure, including provider outages, is Unauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "auth.authenticate")
	defer func() { observability.EndSpan(span, err) }()

	profile, err := s.verify(ctx, token)
	if err != nil {
		observability.AuthAttempts.WithLabelValues("rejected").Inc()
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", profile.Subject))

	user, err = s.upsert(ctx, profile)
	if err != nil {
		observability.AuthAttempts.WithLabelValues("error").Inc()
		return nil, err
	}
	observability.AuthAttempts.WithLabelValues("success").Inc()
	return user, nil
}

// AuthenticateOptional is Authenticate for endpoints that also serve
// anonymous callers: a missing or rejected token yields (nil, nil).
// Persistence failures are still returned.
func (s *AuthService) AuthenticateOptional(ctx context.Context, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		observability.AuthAttempts.WithLabelValues("anonymous").Inc()
		return nil, nil
	}

	user, err := s.Authenticate(ctx, token)
	if models.IsUnauthorized(err) {
		observability.AuthAttempts.WithLabelValues("anonymous").Inc()
		return nil, nil
	}
	return user, err
}

func (s *AuthService) verify(ctx context.Context, token string) (*identity.Profile, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, models.NewUnauthorizedError("Missing bearer token", nil)
	}

	profile, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.log.WarnContext(ctx, "Token verification failed", slog.String("error", err.Error()))
		return nil, models.NewUnauthorizedError("Invalid or expired token", err)
	}
	if profile == nil || profile.Subject == "" {
		return nil, models.NewUnauthorizedError("Invalid or expired token", identity.ErrInvalidToken)
	}
	return profile, nil
}

// upsert creates the user on first sight and otherwise overwrites the
// profile fields with the provider's current values.
func (s *AuthService) upsert(ctx context.Context, p *identity.Profile) (*models.User, error) {
	user, err := s.users.GetByID(ctx, p.Subject)
	switch {
	case err == nil:
		return s.refresh(ctx, user, p)
	case !models.IsNotFound(err):
		return nil, err
	}

	now := s.now()
	user = &models.User{
		ID:        p.Subject,
		Email:     p.Email,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.users.Create(ctx, user)
	if err == nil {
		s.log.InfoContext(ctx, "User created on first login", slog.String("user_id", user.ID))
		return user, nil
	}
	if models.ErrorCode(err) != models.CodeConflict {
		return nil, err
	}

	// A concurrent first login created the row between lookup and insert.
	existing, getErr := s.users.GetByID(ctx, p.Subject)
	if getErr != nil {
		return nil, getErr
	}
	return s.refresh(ctx, existing, p)
}

func (s *AuthService) refresh(ctx context.Context, user *models.User, p *identity.Profile) (*models.User, error) {
	user.Email = p.Email
	user.Name = p.Name
	user.AvatarURL = p.AvatarURL
	user.UpdatedAt = s.now()
	if user.UpdatedAt.Before(user.CreatedAt) {
		user.UpdatedAt = user.CreatedAt
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
