package middleware

import (
	"context"
	"strings"

	"vista/internal/models"
	"vista/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Authenticator resolves bearer tokens to local users.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
	AuthenticateOptional(ctx context.Context, token string) (*models.User, error)
}

// bearerToken extracts the token from "Authorization: Bearer <token>". ok is
// false when a header is present but malformed.
func bearerToken(c *fiber.Ctx) (token string, ok bool) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return "", true
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// AuthRequired rejects requests without a valid bearer token and stores the
// authenticated user in c.Locals(LocalUser).
func AuthRequired(auth Authenticator, exposeDetails bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return models.RespondWithError(c, models.NewUnauthorizedError("Invalid authorization header format", nil), exposeDetails)
		}
		if token == "" {
			return models.RespondWithError(c, models.NewUnauthorizedError("Authorization header required", nil), exposeDetails)
		}

		user, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			return models.RespondWithError(c, err, exposeDetails)
		}
		setUser(c, user)
		return c.Next()
	}
}

// OptionalAuth resolves the caller when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(auth Authenticator, exposeDetails bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, _ := bearerToken(c)
		user, err := auth.AuthenticateOptional(c.UserContext(), token)
		if err != nil {
			return models.RespondWithError(c, err, exposeDetails)
		}
		if user != nil {
			setUser(c, user)
		}
		return c.Next()
	}
}

func setUser(c *fiber.Ctx, user *models.User) {
	c.Locals(LocalUser, user)
	c.Locals(LocalUserID, user.ID)
	c.SetUserContext(observability.WithUserID(c.UserContext(), user.ID))
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalUser).(*models.User)
	return user
}
