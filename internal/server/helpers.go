package server

import (
	"vista/internal/middleware"
	"vista/internal/models"

	"github.com/gofiber/fiber/v2"
)

// respondError writes err using the server's detail policy.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, err, s.exposeDetails)
}

// currentUserID returns the authenticated caller's id. Routes using it are
// mounted behind AuthRequired, so a missing user is reported as 401.
func currentUserID(c *fiber.Ctx) (string, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return "", models.NewUnauthorizedError("Authentication required", nil)
	}
	return user.ID, nil
}
