package service

import (
	"context"
	"log/slog"
	"slices"

	"vista/internal/models"
	"vista/internal/observability"
	"vista/internal/repository"
)

// ExploreService builds the feed of other users' public tracks.
type ExploreService struct {
	tracks repository.TrackRepository
	users  repository.UserRepository
	log    *slog.Logger
}

// NewExploreService returns a new ExploreService.
func NewExploreService(tracks repository.TrackRepository, users repository.UserRepository, log *slog.Logger) *ExploreService {
	return &ExploreService{tracks: tracks, users: users, log: log}
}

// PublicTracks returns the public tracks not owned by userID, newest first,
// each with its creator. Tracks whose owner no longer exists are left out.
func (s *ExploreService) PublicTracks(ctx context.Context, userID string) (feed []models.PublicTrackResponse, err error) {
	ctx, span := observability.StartSpan(ctx, "explore.public_tracks")
	defer func() { observability.EndSpan(span, err) }()

	tracks, err := s.tracks.ListPublicExcludingUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		observability.ExploreFeedSize.Observe(0)
		return []models.PublicTrackResponse{}, nil
	}

	ownerIDs := make([]string, 0, len(tracks))
	seen := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		if _, ok := seen[t.UserID]; ok {
			continue
		}
		seen[t.UserID] = struct{}{}
		ownerIDs = append(ownerIDs, t.UserID)
	}

	owners, err := s.users.GetByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.User, len(owners))
	for i := range owners {
		byID[owners[i].ID] = &owners[i]
	}

	feed = make([]models.PublicTrackResponse, 0, len(tracks))
	for _, t := range tracks {
		owner, ok := byID[t.UserID]
		if !ok {
			observability.ExploreDroppedTracks.Inc()
			s.log.DebugContext(ctx, "Skipping public track without owner",
				slog.String("track_id", t.ID),
				slog.String("owner_id", t.UserID),
			)
			continue
		}
		feed = append(feed, models.PublicTrackResponse{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Creator: models.CreatorSummary{
				ID:     owner.ID,
				Name:   owner.DisplayName(),
				Avatar: owner.AvatarURL,
			},
			ArticlesCount: len(t.Articles),
			CreatedAt:     t.CreatedAt,
		})
	}

	slices.SortStableFunc(feed, func(a, b models.PublicTrackResponse) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	observability.ExploreFeedSize.Observe(float64(len(feed)))
	return feed, nil
}
