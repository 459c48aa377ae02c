package server

import "github.com/gofiber/fiber/v2"

// ExplorePublicTracks handles GET /api/explore/tracks
// @Summary Public tracks of other users, newest first
// @Tags explore
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.PublicTrackResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /explore/tracks [get]
func (s *Server) ExplorePublicTracks(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return s.respondError(c, err)
	}

	feed, err := s.exploreService.PublicTracks(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(feed)
}
