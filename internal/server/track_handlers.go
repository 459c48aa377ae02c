package server

import (
	"vista/internal/models"
	"vista/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createTrackRequest struct {
	Title       string                    `json:"title"`
	Description *string                   `json:"description"`
	IsPublic    bool                      `json:"is_public"`
	Articles    []models.ArticleReference `json:"articles"`
}

// updateTrackRequest distinguishes absent fields from explicit nulls.
type updateTrackRequest struct {
	Title       models.Optional[string]                    `json:"title" swaggertype:"string"`
	Description models.Optional[*string]                   `json:"description" swaggertype:"string"`
	IsPublic    models.Optional[bool]                      `json:"is_public" swaggertype:"boolean"`
	Articles    models.Optional[[]models.ArticleReference] `json:"articles"`
}

// ListTracks handles GET /api/tracks
// @Summary List the caller's tracks
// @Tags tracks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Track
// @Failure 401 {object} models.ErrorResponse
// @Router /tracks [get]
func (s *Server) ListTracks(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return s.respondError(c, err)
	}

	tracks, err := s.trackService.List(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	return c.JSON(tracks)
}

// CreateTrack handles POST /api/tracks
// @Summary Create a track
// @Tags tracks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param track body createTrackRequest true "Track"
// @Success 201 {object} models.Track
// @Failure 400 {object} models.ErrorResponse
// @Router /tracks [post]
func (s *Server) CreateTrack(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return s.respondError(c, err)
	}

	var req createTrackRequest
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	track, err := s.trackService.Create(c.UserContext(), service.CreateTrackInput{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		Articles:    req.Articles,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(track)
}

// GetTrack handles GET /api/tracks/:id
// @Summary Get one of the caller's tracks
// @Tags tracks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Track ID"
// @Success 200 {object} models.Track
// @Failure 404 {object} models.ErrorResponse
// @Router /tracks/{id} [get]
func (s *Server) GetTrack(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return s.respondError(c, err)
	}

	track, err := s.trackService.Get(c.UserContext(), service.GetTrackInput{
		TrackID: c.Params("id"),
		UserID:  userID,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(track)
}

// UpdateTrack handles PUT /api/tracks/:id
// @Summary Partially update one of the caller's tracks
// @Tags tracks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Track ID"
// @Param track body updateTrackRequest true "Fields to change"
// @Success 200 {object} models.Track
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /tracks/{id} [put]
func (s *Server) UpdateTrack(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return s.respondError(c, err)
	}

	var req updateTrackRequest
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	track, err := s.trackService.Update(c.UserContext(), service.UpdateTrackInput{
		TrackID:     c.Params("id"),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		Articles:    req.Articles,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(track)
}

// DeleteTrack handles DELETE /api/tracks/:id
// @Summary Delete one of the caller's tracks
// @Tags tracks
// @Security BearerAuth
// @Param id path string true "Track ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /tracks/{id} [delete]
func (s *Server) DeleteTrack(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return s.respondError(c, err)
	}

	if err := s.trackService.Delete(c.UserContext(), service.DeleteTrackInput{
		TrackID: c.Params("id"),
		UserID:  userID,
	}); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
