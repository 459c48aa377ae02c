package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"vista/internal/models"
	"vista/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackService_Create_Validation(t *testing.T) {
	t.Parallel()

	svc := NewTrackService(noopTrackRepo(), observability.NopLogger())
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateTrackInput
	}{
		{name: "empty title", input: CreateTrackInput{UserID: "u1"}},
		{name: "blank title", input: CreateTrackInput{UserID: "u1", Title: "   "}},
		{name: "title too long", input: CreateTrackInput{UserID: "u1", Title: strings.Repeat("x", 256)}},
		{name: "article without url", input: CreateTrackInput{
			UserID:   "u1",
			Title:    "Rome",
			Articles: []models.ArticleReference{{Title: "Colosseum"}},
		}},
		{name: "article without title", input: CreateTrackInput{
			UserID:   "u1",
			Title:    "Rome",
			Articles: []models.ArticleReference{{URL: "https://en.wikipedia.org/wiki/Colosseum"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			assertCode(t, err, models.CodeValidation)
		})
	}
}

func TestTrackService_Create(t *testing.T) {
	t.Parallel()

	var stored *models.Track
	repo := noopTrackRepo()
	repo.createFn = func(_ context.Context, track *models.Track) error {
		track.ID = "t1"
		stored = track
		return nil
	}
	svc := NewTrackService(repo, observability.NopLogger())

	track, err := svc.Create(context.Background(), CreateTrackInput{UserID: "u1", Title: "  Rome  "})
	require.NoError(t, err)
	assert.Equal(t, "t1", track.ID)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, "Rome", stored.Title)
	assert.False(t, stored.IsPublic)
	assert.NotNil(t, stored.Articles, "articles default to an empty list")
	assert.Empty(t, stored.Articles)
	assert.Equal(t, stored.CreatedAt, stored.UpdatedAt)
}

func TestTrackService_Create_RepositoryError(t *testing.T) {
	t.Parallel()

	repo := noopTrackRepo()
	repo.createFn = func(context.Context, *models.Track) error {
		return models.NewInternalError(errors.New("connection reset"))
	}
	svc := NewTrackService(repo, observability.NopLogger())

	_, err := svc.Create(context.Background(), CreateTrackInput{UserID: "u1", Title: "Rome"})
	assertCode(t, err, models.CodeInternal)
}

func TestTrackService_NotOwnedIsNotFound(t *testing.T) {
	t.Parallel()

	repo := noopTrackRepo()
	updated, deleted := false, false
	repo.updateFn = func(context.Context, *models.Track) error { updated = true; return nil }
	repo.deleteFn = func(context.Context, string) error { deleted = true; return nil }
	svc := NewTrackService(repo, observability.NopLogger())
	ctx := context.Background()

	_, err := svc.Get(ctx, GetTrackInput{TrackID: "t1", UserID: "intruder"})
	assertCode(t, err, models.CodeNotFound)

	_, err = svc.Update(ctx, UpdateTrackInput{TrackID: "t1", UserID: "intruder", Title: models.Some("Mine")})
	assertCode(t, err, models.CodeNotFound)

	err = svc.Delete(ctx, DeleteTrackInput{TrackID: "t1", UserID: "intruder"})
	assertCode(t, err, models.CodeNotFound)

	assert.False(t, updated)
	assert.False(t, deleted)
}

func TestTrackService_Update_AppliesOnlyPresentFields(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	original := func() *models.Track {
		return &models.Track{
			ID:          "t1",
			UserID:      "u1",
			Title:       "Rome",
			Description: strPtr("Ancient sites"),
			IsPublic:    true,
			Articles:    []models.ArticleReference{{Title: "Colosseum", URL: "https://x"}},
			CreatedAt:   created,
			UpdatedAt:   created,
		}
	}

	tests := []struct {
		name   string
		input  UpdateTrackInput
		verify func(t *testing.T, got *models.Track)
	}{
		{
			name:  "title only",
			input: UpdateTrackInput{Title: models.Some("Rome, Italy")},
			verify: func(t *testing.T, got *models.Track) {
				assert.Equal(t, "Rome, Italy", got.Title)
				assert.Equal(t, "Ancient sites", *got.Description)
				assert.True(t, got.IsPublic)
				assert.Len(t, got.Articles, 1)
			},
		},
		{
			name:  "explicit null clears description",
			input: UpdateTrackInput{Description: models.Optional[*string]{Set: true, Null: true}},
			verify: func(t *testing.T, got *models.Track) {
				assert.Nil(t, got.Description)
				assert.Equal(t, "Rome", got.Title)
			},
		},
		{
			name:  "false hides the track",
			input: UpdateTrackInput{IsPublic: models.Some(false)},
			verify: func(t *testing.T, got *models.Track) {
				assert.False(t, got.IsPublic)
			},
		},
		{
			name:  "empty articles replace the list",
			input: UpdateTrackInput{Articles: models.Some([]models.ArticleReference{})},
			verify: func(t *testing.T, got *models.Track) {
				assert.NotNil(t, got.Articles)
				assert.Empty(t, got.Articles)
			},
		},
		{
			name:  "nothing present still refreshes updated_at",
			input: UpdateTrackInput{},
			verify: func(t *testing.T, got *models.Track) {
				assert.Equal(t, "Rome", got.Title)
				assert.True(t, got.UpdatedAt.After(created))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var saved *models.Track
			repo := noopTrackRepo()
			repo.getByIDAndUserIDFn = func(context.Context, string, string) (*models.Track, error) { return original(), nil }
			repo.updateFn = func(_ context.Context, track *models.Track) error { saved = track; return nil }
			svc := NewTrackService(repo, observability.NopLogger())

			in := tt.input
			in.TrackID, in.UserID = "t1", "u1"
			got, err := svc.Update(context.Background(), in)
			require.NoError(t, err)
			require.Same(t, saved, got)
			assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
			tt.verify(t, got)
		})
	}
}

func TestTrackService_Update_Validation(t *testing.T) {
	t.Parallel()

	repo := noopTrackRepo()
	repo.getByIDAndUserIDFn = func(context.Context, string, string) (*models.Track, error) {
		return &models.Track{ID: "t1", UserID: "u1", Title: "Rome"}, nil
	}
	repo.updateFn = func(context.Context, *models.Track) error {
		t.Fatal("invalid updates must not be persisted")
		return nil
	}
	svc := NewTrackService(repo, observability.NopLogger())

	tests := []struct {
		name  string
		input UpdateTrackInput
	}{
		{"blank title", UpdateTrackInput{Title: models.Some(" ")}},
		{"null title", UpdateTrackInput{Title: models.Optional[string]{Set: true, Null: true}}},
		{"null visibility", UpdateTrackInput{IsPublic: models.Optional[bool]{Set: true, Null: true}}},
		{"null articles", UpdateTrackInput{Articles: models.Optional[[]models.ArticleReference]{Set: true, Null: true}}},
		{"invalid article", UpdateTrackInput{Articles: models.Some([]models.ArticleReference{{Title: "x"}})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input
			in.TrackID, in.UserID = "t1", "u1"
			_, err := svc.Update(context.Background(), in)
			assertCode(t, err, models.CodeValidation)
		})
	}
}

func TestTrackService_DeleteAndList(t *testing.T) {
	t.Parallel()

	var deletedID string
	repo := noopTrackRepo()
	repo.getByIDAndUserIDFn = func(_ context.Context, id, userID string) (*models.Track, error) {
		return &models.Track{ID: id, UserID: userID}, nil
	}
	repo.deleteFn = func(_ context.Context, id string) error { deletedID = id; return nil }
	repo.listByUserIDFn = func(_ context.Context, userID string) ([]models.Track, error) {
		return []models.Track{{ID: "a", UserID: userID}, {ID: "b", UserID: userID}}, nil
	}
	svc := NewTrackService(repo, observability.NopLogger())
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, DeleteTrackInput{TrackID: "t1", UserID: "u1"}))
	assert.Equal(t, "t1", deletedID)

	tracks, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
}
