package server

import (
	"vista/internal/middleware"
	"vista/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /api/user/profile
// @Summary Profile of the authenticated caller
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserProfile
// @Failure 401 {object} models.ErrorResponse
// @Router /user/profile [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return s.respondError(c, models.NewUnauthorizedError("Authentication required", nil))
	}
	return c.JSON(user.Profile())
}

// GetMe handles GET /api/me
// @Summary Current user, or null for anonymous callers
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Router /me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.JSON(nil)
	}
	return c.JSON(user)
}
