package repository

import (
	"context"
	"log/slog"

	"vista/internal/models"
	"vista/internal/observability"

	"gorm.io/gorm"
)

const tracksTable = "tracks"

// TrackRepository defines persistence operations for tracks. Every mutation
// is a single statement committed on its own.
type TrackRepository interface {
	ListByUserID(ctx context.Context, userID string) ([]models.Track, error)
	ListPublicExcludingUser(ctx context.Context, userID string) ([]models.Track, error)
	GetByIDAndUserID(ctx context.Context, id, userID string) (*models.Track, error)
	Create(ctx context.Context, track *models.Track) error
	Update(ctx context.Context, track *models.Track) error
	Delete(ctx context.Context, id string) error
}

type trackRepository struct {
	db  *gorm.DB
	log *OpLogger
}

// NewTrackRepository returns a new TrackRepository implementation.
func NewTrackRepository(db *gorm.DB, log *OpLogger) TrackRepository {
	return &trackRepository{db: db, log: log}
}

func (r *trackRepository) ListByUserID(ctx context.Context, userID string) ([]models.Track, error) {
	defer observability.TrackQuery("select", tracksTable)()

	var tracks []models.Track
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&tracks).Error; err != nil {
		return nil, r.log.translate(ctx, "select", tracksTable, "Track", err, slog.String("user_id", userID))
	}
	r.log.Operation(ctx, "select", tracksTable, "", slog.String("user_id", userID), slog.Int("count", len(tracks)))
	return tracks, nil
}

func (r *trackRepository) ListPublicExcludingUser(ctx context.Context, userID string) ([]models.Track, error) {
	defer observability.TrackQuery("select_public", tracksTable)()

	var tracks []models.Track
	if err := r.db.WithContext(ctx).
		Where("is_public = ? AND user_id <> ?", true, userID).
		Find(&tracks).Error; err != nil {
		return nil, r.log.translate(ctx, "select_public", tracksTable, "Track", err, slog.String("excluded_user_id", userID))
	}
	r.log.Operation(ctx, "select_public", tracksTable, "", slog.String("excluded_user_id", userID), slog.Int("count", len(tracks)))
	return tracks, nil
}

// GetByIDAndUserID loads a track owned by userID. A track that exists but
// belongs to someone else is reported as not found.
func (r *trackRepository) GetByIDAndUserID(ctx context.Context, id, userID string) (*models.Track, error) {
	defer observability.TrackQuery("select", tracksTable)()

	var track models.Track
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&track).Error; err != nil {
		return nil, r.log.translate(ctx, "select", tracksTable, "Track", err, slog.String("record_id", id), slog.String("user_id", userID))
	}
	r.log.Operation(ctx, "select", tracksTable, id, slog.String("user_id", userID))
	return &track, nil
}

func (r *trackRepository) Create(ctx context.Context, track *models.Track) error {
	defer observability.TrackQuery("insert", tracksTable)()

	if err := r.db.WithContext(ctx).Create(track).Error; err != nil {
		return r.log.translate(ctx, "insert", tracksTable, "Track", err, slog.String("user_id", track.UserID))
	}
	r.log.Operation(ctx, "insert", tracksTable, track.ID, slog.String("user_id", track.UserID))
	return nil
}

// Update writes the mutable columns of track.
func (r *trackRepository) Update(ctx context.Context, track *models.Track) error {
	defer observability.TrackQuery("update", tracksTable)()

	result := r.db.WithContext(ctx).
		Model(track).
		Select("title", "description", "is_public", "articles", "updated_at").
		Updates(track)
	if result.Error != nil {
		return r.log.translate(ctx, "update", tracksTable, "Track", result.Error, slog.String("record_id", track.ID))
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Track")
	}
	r.log.Operation(ctx, "update", tracksTable, track.ID, slog.String("user_id", track.UserID))
	return nil
}

func (r *trackRepository) Delete(ctx context.Context, id string) error {
	defer observability.TrackQuery("delete", tracksTable)()

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Track{})
	if result.Error != nil {
		return r.log.translate(ctx, "delete", tracksTable, "Track", result.Error, slog.String("record_id", id))
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Track")
	}
	r.log.Operation(ctx, "delete", tracksTable, id)
	return nil
}
