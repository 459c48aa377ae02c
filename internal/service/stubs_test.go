package service

import (
	"context"
	"errors"
	"testing"

	"vista/internal/identity"
	"vista/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackRepoStub is a stub for repository.TrackRepository.
type trackRepoStub struct {
	listByUserIDFn            func(context.Context, string) ([]models.Track, error)
	listPublicExcludingUserFn func(context.Context, string) ([]models.Track, error)
	getByIDAndUserIDFn        func(context.Context, string, string) (*models.Track, error)
	createFn                  func(context.Context, *models.Track) error
	updateFn                  func(context.Context, *models.Track) error
	deleteFn                  func(context.Context, string) error
}

func (s *trackRepoStub) ListByUserID(ctx context.Context, userID string) ([]models.Track, error) {
	return s.listByUserIDFn(ctx, userID)
}
func (s *trackRepoStub) ListPublicExcludingUser(ctx context.Context, userID string) ([]models.Track, error) {
	return s.listPublicExcludingUserFn(ctx, userID)
}
func (s *trackRepoStub) GetByIDAndUserID(ctx context.Context, id, userID string) (*models.Track, error) {
	return s.getByIDAndUserIDFn(ctx, id, userID)
}
func (s *trackRepoStub) Create(ctx context.Context, track *models.Track) error {
	return s.createFn(ctx, track)
}
func (s *trackRepoStub) Update(ctx context.Context, track *models.Track) error {
	return s.updateFn(ctx, track)
}
func (s *trackRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func noopTrackRepo() *trackRepoStub {
	return &trackRepoStub{
		listByUserIDFn:            func(context.Context, string) ([]models.Track, error) { return nil, nil },
		listPublicExcludingUserFn: func(context.Context, string) ([]models.Track, error) { return nil, nil },
		getByIDAndUserIDFn: func(context.Context, string, string) (*models.Track, error) {
			return nil, models.NewNotFoundError("Track")
		},
		createFn: func(context.Context, *models.Track) error { return nil },
		updateFn: func(context.Context, *models.Track) error { return nil },
		deleteFn: func(context.Context, string) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn  func(context.Context, string) (*models.User, error)
	getByIDsFn func(context.Context, []string) ([]models.User, error)
	createFn   func(context.Context, *models.User) error
	updateFn   func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:  func(context.Context, string) (*models.User, error) { return nil, models.NewNotFoundError("User") },
		getByIDsFn: func(context.Context, []string) ([]models.User, error) { return nil, nil },
		createFn:   func(context.Context, *models.User) error { return nil },
		updateFn:   func(context.Context, *models.User) error { return nil },
	}
}

// staticVerifier accepts exactly the tokens in its map.
func staticVerifier(profiles map[string]identity.Profile) identity.Verifier {
	return identity.VerifierFunc(func(_ context.Context, token string) (*identity.Profile, error) {
		p, ok := profiles[token]
		if !ok {
			return nil, identity.ErrInvalidToken
		}
		return &p, nil
	})
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func strPtr(s string) *string { return &s }
