// Package service implements the application's business logic on top of the
// repository layer. Services own multi-step write flows and run them
// atomically through the transaction manager.
package service

import (
	"context"
	"crypto/subtle"
	"time"

	"plaza/internal/auth"
	"plaza/internal/database"
	"plaza/internal/models"
	"plaza/internal/repository"
	"plaza/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
	tx       *database.TxManager
}

func NewUserService(userRepo repository.UserRepository, tx *database.TxManager) *UserService {
	return &UserService{userRepo: userRepo, tx: tx}
}

type RegisterInput struct {
	Email    string
	Password string
	Username string
	Bio      *string
	Avatar   *string
}

// Register creates a user row and its profile row as one atomic unit. If the
// profile insert fails for any reason, the user row is rolled back with it;
// a half-registered account is never observable.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := repository.NormalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewDuplicateEmailError(email)
	}

	user := &models.User{
		Email:          email,
		HashedPassword: auth.HashPassword(in.Password),
	}

	err = s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		if err := s.userRepo.InsertUser(ctx, user); err != nil {
			return err
		}
		return s.userRepo.InsertUserProfile(ctx, &models.UserProfile{
			UserID:    user.ID,
			Username:  in.Username,
			Bio:       in.Bio,
			AvatarURL: in.Avatar,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.userRepo.FindByID(ctx, user.ID)
}

// Authenticate verifies an email/password pair and returns the matching user.
// A missing account and a wrong password produce the same error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewInvalidCredentialsError()
	}

	digest := auth.HashPassword(password)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(user.HashedPassword)) != 1 {
		return nil, models.NewInvalidCredentialsError()
	}
	return user, nil
}

// ChangePassword rotates a user's credential after verifying the current one
// and returns the updated user.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", userID)
	}

	current := auth.HashPassword(currentPassword)
	if subtle.ConstantTimeCompare([]byte(current), []byte(user.HashedPassword)) != 1 {
		return nil, models.NewInvalidCredentialsError()
	}

	if err := validation.ValidatePassword(newPassword); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	found, err := s.userRepo.UpdatePassword(ctx, userID, auth.HashPassword(newPassword), time.Now())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.NewNotFoundError("User", userID)
	}
	return s.GetByID(ctx, userID)
}

// UpdateProfile applies a sparse profile update and bumps the owning user's
// updated_at alongside it, atomically.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, changes models.ProfileChanges) (*models.User, error) {
	if changes.Username.Present() {
		if v := changes.Username.Value(); v != nil {
			if err := validation.ValidateUsername(*v); err != nil {
				return nil, models.NewValidationError(err.Error())
			}
		}
	}

	err := s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		now := time.Now()
		found, err := s.userRepo.UpdateProfile(ctx, userID, changes, now)
		if err != nil {
			return err
		}
		if !found {
			return models.NewNotFoundError("User", userID)
		}
		if changes.Empty() {
			return nil
		}
		if _, err := s.userRepo.TouchUser(ctx, userID, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// An empty change set is a no-op even for an unknown id; the read-back
	// decides whether the user actually exists.
	return s.GetByID(ctx, userID)
}

func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", userID)
	}
	return user, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userRepo.FindByEmail(ctx, email)
}
