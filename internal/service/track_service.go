package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"vista/internal/models"
	"vista/internal/observability"
	"vista/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxTitleLength = 255

// TrackService provides track CRUD scoped to the calling user.
type TrackService struct {
	tracks repository.TrackRepository
	log    *slog.Logger
	now    func() time.Time
}

// CreateTrackInput is the input for creating a track.
type CreateTrackInput struct {
	UserID      string
	Title       string
	Description *string
	IsPublic    bool
	Articles    []models.ArticleReference
}

// GetTrackInput identifies a track of the caller.
type GetTrackInput struct {
	TrackID string
	UserID  string
}

// UpdateTrackInput carries a partial update. Only fields with Set are
// applied; a set Description with Null clears it.
type UpdateTrackInput struct {
	TrackID     string
	UserID      string
	Title       models.Optional[string]
	Description models.Optional[*string]
	IsPublic    models.Optional[bool]
	Articles    models.Optional[[]models.ArticleReference]
}

// DeleteTrackInput identifies a track of the caller to remove.
type DeleteTrackInput struct {
	TrackID string
	UserID  string
}

// NewTrackService returns a new TrackService.
func NewTrackService(tracks repository.TrackRepository, log *slog.Logger) *TrackService {
	return &TrackService{
		tracks: tracks,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new track owned by in.UserID.
func (s *TrackService) Create(ctx context.Context, in CreateTrackInput) (*models.Track, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	articles := in.Articles
	if articles == nil {
		articles = []models.ArticleReference{}
	}
	if err := validateArticles(articles); err != nil {
		return nil, err
	}

	now := s.now()
	track := &models.Track{
		UserID:      in.UserID,
		Title:       title,
		Description: in.Description,
		IsPublic:    in.IsPublic,
		Articles:    articles,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tracks.Create(ctx, track); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "Track created",
		slog.String("track_id", track.ID),
		slog.Bool("is_public", track.IsPublic),
		slog.Int("articles", len(track.Articles)),
	)
	return track, nil
}

// Get returns the caller's track. A track owned by someone else is reported
// as not found.
func (s *TrackService) Get(ctx context.Context, in GetTrackInput) (*models.Track, error) {
	return s.owned(ctx, in.TrackID, in.UserID)
}

// Update applies the present fields of in to the caller's track.
func (s *TrackService) Update(ctx context.Context, in UpdateTrackInput) (track *models.Track, err error) {
	ctx, span := observability.StartSpan(ctx, "tracks.update", attribute.String("track.id", in.TrackID))
	defer func() { observability.EndSpan(span, err) }()

	track, err = s.owned(ctx, in.TrackID, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Title.Set {
		if in.Title.Null {
			return nil, models.NewValidationError("Title cannot be null")
		}
		title, err := validateTitle(in.Title.Value)
		if err != nil {
			return nil, err
		}
		track.Title = title
	}
	if in.Description.Set {
		track.Description = in.Description.Value
	}
	if in.IsPublic.Set {
		if in.IsPublic.Null {
			return nil, models.NewValidationError("is_public cannot be null")
		}
		track.IsPublic = in.IsPublic.Value
	}
	if in.Articles.Set {
		if in.Articles.Null {
			return nil, models.NewValidationError("Articles cannot be null")
		}
		if err := validateArticles(in.Articles.Value); err != nil {
			return nil, err
		}
		track.Articles = in.Articles.Value
		if track.Articles == nil {
			track.Articles = []models.ArticleReference{}
		}
	}

	track.UpdatedAt = s.now()
	if track.UpdatedAt.Before(track.CreatedAt) {
		track.UpdatedAt = track.CreatedAt
	}
	if err := s.tracks.Update(ctx, track); err != nil {
		return nil, err
	}
	return track, nil
}

// Delete removes the caller's track.
func (s *TrackService) Delete(ctx context.Context, in DeleteTrackInput) error {
	track, err := s.owned(ctx, in.TrackID, in.UserID)
	if err != nil {
		return err
	}
	if err := s.tracks.Delete(ctx, track.ID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Track deleted", slog.String("track_id", track.ID))
	return nil
}

// List returns every track owned by userID.
func (s *TrackService) List(ctx context.Context, userID string) ([]models.Track, error) {
	return s.tracks.ListByUserID(ctx, userID)
}

func (s *TrackService) owned(ctx context.Context, trackID, userID string) (*models.Track, error) {
	return s.tracks.GetByIDAndUserID(ctx, trackID, userID)
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", models.NewValidationError(fmt.Sprintf("Title must be at most %d characters", maxTitleLength))
	}
	return title, nil
}

func validateArticles(articles []models.ArticleReference) error {
	for i, a := range articles {
		if strings.TrimSpace(a.Title) == "" {
			return models.NewValidationError(fmt.Sprintf("Article %d: title is required", i))
		}
		if strings.TrimSpace(a.URL) == "" {
			return models.NewValidationError(fmt.Sprintf("Article %d: url is required", i))
		}
	}
	return nil
}
