package service

import (
	"context"
	"testing"
	"time"

	"vista/internal/identity"
	"vista/internal/models"
	"vista/internal/observability"
	"vista/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testApp struct {
	db      *gorm.DB
	auth    *AuthService
	tracks  *TrackService
	explore *ExploreService
}

func newTestApp(t *testing.T, profiles map[string]identity.Profile) *testApp {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Track{}))

	log := observability.NopLogger()
	opLog := repository.NewOpLogger(log)
	trackRepo := repository.NewTrackRepository(db, opLog)
	userRepo := repository.NewUserRepository(db, opLog)

	return &testApp{
		db:      db,
		auth:    NewAuthService(staticVerifier(profiles), userRepo, log),
		tracks:  NewTrackService(trackRepo, log),
		explore: NewExploreService(trackRepo, userRepo, log),
	}
}

func TestTrackLifecycleAcrossUsers(t *testing.T) {
	app := newTestApp(t, map[string]identity.Profile{
		"token-a": {Subject: "user-a", Email: "alice@example.com"},
		"token-b": {Subject: "user-b", Email: "bob@example.com", Name: strPtr("Bob")},
	})
	ctx := context.Background()

	alice, err := app.auth.Authenticate(ctx, "token-a")
	require.NoError(t, err)
	bob, err := app.auth.Authenticate(ctx, "token-b")
	require.NoError(t, err)

	track, err := app.tracks.Create(ctx, CreateTrackInput{
		UserID: alice.ID,
		Title:  "Rome",
		Articles: []models.ArticleReference{
			{Title: "Colosseum", URL: "https://en.wikipedia.org/wiki/Colosseum"},
		},
	})
	require.NoError(t, err)

	mine, err := app.tracks.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, track.ID, mine[0].ID)
	require.Len(t, mine[0].Articles, 1)
	assert.False(t, mine[0].Articles[0].Completed)

	theirs, err := app.tracks.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	feed, err := app.explore.PublicTracks(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, feed, "private tracks stay out of the feed")

	_, err = app.tracks.Update(ctx, UpdateTrackInput{TrackID: track.ID, UserID: alice.ID, IsPublic: models.Some(true)})
	require.NoError(t, err)

	feed, err = app.explore.PublicTracks(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, track.ID, feed[0].ID)
	assert.Equal(t, "alice", feed[0].Creator.Name)
	assert.Equal(t, 1, feed[0].ArticlesCount)

	feed, err = app.explore.PublicTracks(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, feed, "own tracks are excluded from the feed")

	_, err = app.tracks.Get(ctx, GetTrackInput{TrackID: track.ID, UserID: bob.ID})
	assertCode(t, err, models.CodeNotFound)
	assertCode(t, app.tracks.Delete(ctx, DeleteTrackInput{TrackID: track.ID, UserID: bob.ID}), models.CodeNotFound)

	require.NoError(t, app.tracks.Delete(ctx, DeleteTrackInput{TrackID: track.ID, UserID: alice.ID}))
	_, err = app.tracks.Get(ctx, GetTrackInput{TrackID: track.ID, UserID: alice.ID})
	assertCode(t, err, models.CodeNotFound)
}

func TestRepeatedAuthenticationConvergesToOneUser(t *testing.T) {
	profiles := map[string]identity.Profile{
		"token": {Subject: "user-a", Email: "alice@example.com"},
	}
	app := newTestApp(t, profiles)
	ctx := context.Background()

	first, err := app.auth.Authenticate(ctx, "token")
	require.NoError(t, err)

	profiles["token"] = identity.Profile{Subject: "user-a", Email: "alice@new.example.com", Name: strPtr("Alice")}
	second, err := app.auth.Authenticate(ctx, "token")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice@new.example.com", second.Email)
	assert.False(t, second.UpdatedAt.Before(second.CreatedAt))

	_, err = app.tracks.Create(ctx, CreateTrackInput{UserID: second.ID, Title: "Paris", IsPublic: true})
	require.NoError(t, err)

	feed, err := app.explore.PublicTracks(ctx, "someone-else")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "Alice", feed[0].Creator.Name)
}

func TestStoredUpdatedAtFollowsServiceClock(t *testing.T) {
	app := newTestApp(t, map[string]identity.Profile{
		"token": {Subject: "user-a", Email: "alice@example.com"},
	})
	ctx := context.Background()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	app.auth.now = func() time.Time { return created }
	user, err := app.auth.Authenticate(ctx, "token")
	require.NoError(t, err)

	app.tracks.now = func() time.Time { return created }
	track, err := app.tracks.Create(ctx, CreateTrackInput{UserID: user.ID, Title: "Rome"})
	require.NoError(t, err)

	storedTrack := func() models.Track {
		var got models.Track
		require.NoError(t, app.db.First(&got, "id = ?", track.ID).Error)
		return got
	}

	later := created.Add(time.Hour)
	app.tracks.now = func() time.Time { return later }
	_, err = app.tracks.Update(ctx, UpdateTrackInput{TrackID: track.ID, UserID: user.ID})
	require.NoError(t, err)
	assert.True(t, storedTrack().UpdatedAt.Equal(later), "got %s", storedTrack().UpdatedAt)

	// A clock behind created_at is clamped.
	app.tracks.now = func() time.Time { return created.Add(-time.Hour) }
	_, err = app.tracks.Update(ctx, UpdateTrackInput{TrackID: track.ID, UserID: user.ID})
	require.NoError(t, err)
	assert.True(t, storedTrack().UpdatedAt.Equal(created), "got %s", storedTrack().UpdatedAt)

	app.auth.now = func() time.Time { return later }
	_, err = app.auth.Authenticate(ctx, "token")
	require.NoError(t, err)
	var storedUser models.User
	require.NoError(t, app.db.First(&storedUser, "id = ?", user.ID).Error)
	assert.True(t, storedUser.UpdatedAt.Equal(later), "got %s", storedUser.UpdatedAt)
}
