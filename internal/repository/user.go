package repository

import (
	"context"
	"log/slog"

	"vista/internal/models"
	"vista/internal/observability"

	"gorm.io/gorm"
)

const usersTable = "users"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db  *gorm.DB
	log *OpLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB, log *OpLogger) UserRepository {
	return &userRepository{db: db, log: log}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	defer observability.TrackQuery("select", usersTable)()

	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, r.log.translate(ctx, "select", usersTable, "User", err, slog.String("record_id", id))
	}
	r.log.Operation(ctx, "select", usersTable, id)
	return &user, nil
}

// GetByIDs returns the users among ids that exist, in no particular order.
func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	defer observability.TrackQuery("select_many", usersTable)()

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, r.log.translate(ctx, "select_many", usersTable, "User", err, slog.Any("record_ids", ids))
	}
	r.log.Operation(ctx, "select_many", usersTable, "", slog.Int("requested", len(ids)), slog.Int("count", len(users)))
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("insert", usersTable)()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return r.log.translate(ctx, "insert", usersTable, "User", err, slog.String("record_id", user.ID))
	}
	r.log.Operation(ctx, "insert", usersTable, user.ID)
	return nil
}

// Update writes the provider-sourced profile columns of user.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("update", usersTable)()

	result := r.db.WithContext(ctx).
		Model(user).
		Select("email", "name", "avatar_url", "updated_at").
		Updates(user)
	if result.Error != nil {
		return r.log.translate(ctx, "update", usersTable, "User", result.Error, slog.String("record_id", user.ID))
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User")
	}
	r.log.Operation(ctx, "update", usersTable, user.ID)
	return nil
}
