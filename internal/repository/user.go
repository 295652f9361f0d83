package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"plaza/internal/auth"
	"plaza/internal/database"
	"plaza/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users and their profiles.
//
// Write methods issue DML against the transaction bound to ctx when there is
// one; they never open transactions of their own. Update methods report a
// missing target as found=false rather than an error.
type UserRepository interface {
	InsertUser(ctx context.Context, user *models.User) error
	InsertUserProfile(ctx context.Context, profile *models.UserProfile) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, digest string, at time.Time) (bool, error)
	UpdateProfile(ctx context.Context, id string, changes models.ProfileChanges, at time.Time) (bool, error)
	TouchUser(ctx context.Context, id string, at time.Time) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *userRepository) InsertUser(ctx context.Context, user *models.User) error {
	// Guard the digest format before anything touches storage.
	if !auth.ValidDigest(user.HashedPassword) {
		return models.NewInvalidCredentialHashError()
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = NormalizeEmail(user.Email)

	if err := r.conn(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err, "email") {
			return models.NewDuplicateEmailError(user.Email)
		}
		if isTransient(err) {
			return models.NewTransientStorageError(err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) InsertUserProfile(ctx context.Context, profile *models.UserProfile) error {
	username, err := normalizeUsername(profile.Username)
	if err != nil {
		return err
	}
	profile.Username = username

	bio, err := normalizeNullableText(profile.Bio, models.MaxBioLength)
	if err != nil {
		return err
	}
	profile.Bio = bio

	avatar, err := normalizeNullableText(profile.AvatarURL, 0)
	if err != nil {
		return err
	}
	profile.AvatarURL = avatar

	if err := r.conn(ctx).Create(profile).Error; err != nil {
		if isUniqueViolation(err, "username") {
			return models.NewDuplicateUsernameError(profile.Username)
		}
		if isTransient(err) {
			return models.NewTransientStorageError(err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.conn(ctx).
		Preload("Profile").
		Where("email = ?", NormalizeEmail(email)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if isTransient(err) {
			return nil, models.NewTransientStorageError(err)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.conn(ctx).
		Preload("Profile").
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if isTransient(err) {
			return nil, models.NewTransientStorageError(err)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, digest string, at time.Time) (bool, error) {
	if !auth.ValidDigest(digest) {
		return false, models.NewInvalidCredentialHashError()
	}

	res := r.conn(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"hashed_password": digest,
			"updated_at":      at,
		})
	if res.Error != nil {
		if isTransient(res.Error) {
			return false, models.NewTransientStorageError(res.Error)
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, changes models.ProfileChanges, at time.Time) (bool, error) {
	updates := map[string]interface{}{}

	if changes.Username.Present() {
		v := changes.Username.Value()
		if v == nil {
			return false, models.NewValidationError("Username cannot be cleared")
		}
		username, err := normalizeUsername(*v)
		if err != nil {
			return false, err
		}
		updates["username"] = username
	}

	if changes.Bio.Present() {
		bio, err := normalizeNullableText(changes.Bio.Value(), models.MaxBioLength)
		if err != nil {
			return false, err
		}
		updates["bio"] = bio
	}

	if changes.AvatarURL.Present() {
		avatar, err := normalizeNullableText(changes.AvatarURL.Value(), 0)
		if err != nil {
			return false, err
		}
		updates["avatar_url"] = avatar
	}

	// No provided fields: report success without touching the row.
	if len(updates) == 0 {
		return true, nil
	}

	updates["updated_at"] = at

	res := r.conn(ctx).
		Model(&models.UserProfile{}).
		Where("user_id = ?", id).
		Updates(updates)
	if res.Error != nil {
		if isUniqueViolation(res.Error, "username") {
			username, _ := updates["username"].(string)
			return false, models.NewDuplicateUsernameError(username)
		}
		if isTransient(res.Error) {
			return false, models.NewTransientStorageError(res.Error)
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) TouchUser(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.conn(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("updated_at", at)
	if res.Error != nil {
		if isTransient(res.Error) {
			return false, models.NewTransientStorageError(res.Error)
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// NormalizeEmail lower-cases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeUsername(username string) (string, error) {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return "", models.NewValidationError("Username is required")
	}
	return trimmed, nil
}

// normalizeNullableText trims value and collapses empty strings to NULL.
// A maxLength of zero means unbounded.
func normalizeNullableText(value *string, maxLength int) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if maxLength > 0 && len([]rune(trimmed)) > maxLength {
		return nil, models.NewValidationError(
			fmt.Sprintf("Value must be at most %d characters long", maxLength))
	}
	return &trimmed, nil
}
