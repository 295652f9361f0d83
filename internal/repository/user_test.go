package repository

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"plaza/internal/auth"
	"plaza/internal/database"
	"plaza/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// openTestDB opens an in-memory sqlite database pinned to a single connection
// so transactions and verification queries see the same store.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, repo UserRepository, email, username string) *models.User {
	t.Helper()
	user := &models.User{
		Email:          email,
		HashedPassword: auth.HashPassword("password"),
	}
	require.NoError(t, repo.InsertUser(context.Background(), user))
	require.NoError(t, repo.InsertUserProfile(context.Background(), &models.UserProfile{
		UserID:   user.ID,
		Username: username,
	}))
	return user
}

func TestUserRepository_FindByEmail_SQLShape(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "hashed_password"}).
		AddRow("u-1", "a@example.com", auth.HashPassword("password"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2`)).
		WithArgs("a@example.com", 1).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "user_profiles" WHERE "user_profiles"."user_id" = $1`)).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username"}).AddRow("u-1", "alice"))

	// Lookup is by the normalized address.
	user, err := repo.FindByEmail(context.Background(), "  A@Example.COM ")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "a@example.com", user.Email)
	require.NotNil(t, user.Profile)
	assert.Equal(t, "alice", user.Profile.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_InsertUser(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("normalizes email and assigns id", func(t *testing.T) {
		user := &models.User{
			Email:          "  New@Example.COM ",
			HashedPassword: auth.HashPassword("password"),
		}
		require.NoError(t, repo.InsertUser(ctx, user))
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "new@example.com", user.Email)
	})

	t.Run("rejects duplicate email after normalization", func(t *testing.T) {
		err := repo.InsertUser(ctx, &models.User{
			Email:          "NEW@example.com",
			HashedPassword: auth.HashPassword("other"),
		})
		assert.True(t, models.IsCode(err, models.CodeDuplicateEmail))
	})

	t.Run("rejects malformed digest before writing", func(t *testing.T) {
		err := repo.InsertUser(ctx, &models.User{
			Email:          "nobody@example.com",
			HashedPassword: "plaintext-password",
		})
		assert.True(t, models.IsCode(err, models.CodeInvalidCredentialHash))

		missing, ferr := repo.FindByEmail(ctx, "nobody@example.com")
		require.NoError(t, ferr)
		assert.Nil(t, missing)
	})
}

func TestUserRepository_InsertUserProfile(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := seedUser(t, repo, "p1@example.com", "poster")

	t.Run("rejects duplicate username", func(t *testing.T) {
		other := &models.User{
			Email:          "p2@example.com",
			HashedPassword: auth.HashPassword("password"),
		}
		require.NoError(t, repo.InsertUser(ctx, other))

		err := repo.InsertUserProfile(ctx, &models.UserProfile{
			UserID:   other.ID,
			Username: "poster",
		})
		assert.True(t, models.IsCode(err, models.CodeDuplicateUsername))
	})

	t.Run("rejects blank username", func(t *testing.T) {
		err := repo.InsertUserProfile(ctx, &models.UserProfile{
			UserID:   user.ID,
			Username: "   ",
		})
		assert.True(t, models.IsCode(err, models.CodeValidation))
	})

	t.Run("rejects overlong bio", func(t *testing.T) {
		long := strings.Repeat("b", models.MaxBioLength+1)
		err := repo.InsertUserProfile(ctx, &models.UserProfile{
			UserID:   user.ID,
			Username: "someone",
			Bio:      &long,
		})
		assert.True(t, models.IsCode(err, models.CodeValidation))
	})
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := seedUser(t, repo, "pw@example.com", "pwuser")
	original := user.HashedPassword

	t.Run("guards the digest and leaves storage untouched", func(t *testing.T) {
		found, err := repo.UpdatePassword(ctx, user.ID, "not-a-digest", time.Now())
		assert.False(t, found)
		assert.True(t, models.IsCode(err, models.CodeInvalidCredentialHash))

		got, ferr := repo.FindByID(ctx, user.ID)
		require.NoError(t, ferr)
		assert.Equal(t, original, got.HashedPassword)
	})

	t.Run("updates an existing user", func(t *testing.T) {
		next := auth.HashPassword("rotated")
		found, err := repo.UpdatePassword(ctx, user.ID, next, time.Now())
		require.NoError(t, err)
		assert.True(t, found)

		got, ferr := repo.FindByID(ctx, user.ID)
		require.NoError(t, ferr)
		assert.Equal(t, next, got.HashedPassword)
	})

	t.Run("reports a missing user as not found", func(t *testing.T) {
		found, err := repo.UpdatePassword(ctx, "missing-id", auth.HashPassword("x"), time.Now())
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	bio := "original bio"
	user := seedUser(t, repo, "prof@example.com", "profuser")
	found, err := repo.UpdateProfile(ctx, user.ID, models.ProfileChanges{
		Bio: models.SetField(bio),
	}, time.Now())
	require.NoError(t, err)
	require.True(t, found)

	t.Run("applies only provided fields", func(t *testing.T) {
		found, err := repo.UpdateProfile(ctx, user.ID, models.ProfileChanges{
			Username: models.SetField("renamed"),
		}, time.Now())
		require.NoError(t, err)
		assert.True(t, found)

		got, ferr := repo.FindByID(ctx, user.ID)
		require.NoError(t, ferr)
		assert.Equal(t, "renamed", got.Profile.Username)
		require.NotNil(t, got.Profile.Bio)
		assert.Equal(t, bio, *got.Profile.Bio)
	})

	t.Run("clears bio to null when explicitly cleared", func(t *testing.T) {
		found, err := repo.UpdateProfile(ctx, user.ID, models.ProfileChanges{
			Bio: models.ClearField[string](),
		}, time.Now())
		require.NoError(t, err)
		assert.True(t, found)

		got, ferr := repo.FindByID(ctx, user.ID)
		require.NoError(t, ferr)
		assert.Nil(t, got.Profile.Bio)
	})

	t.Run("empty change set is a no-op success", func(t *testing.T) {
		found, err := repo.UpdateProfile(ctx, user.ID, models.ProfileChanges{}, time.Now())
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("rejects clearing the username", func(t *testing.T) {
		_, err := repo.UpdateProfile(ctx, user.ID, models.ProfileChanges{
			Username: models.ClearField[string](),
		}, time.Now())
		assert.True(t, models.IsCode(err, models.CodeValidation))
	})
}

func TestUserRepository_TouchUser(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := seedUser(t, repo, "touch@example.com", "toucher")

	found, err := repo.TouchUser(ctx, user.ID, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.TouchUser(ctx, "missing-id", time.Now())
	require.NoError(t, err)
	assert.False(t, found)
}
