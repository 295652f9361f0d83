package database

import (
	"context"
	"errors"
	"testing"

	"plaza/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens an in-memory sqlite database pinned to a single
// connection so that transactions and plain queries observe the same store.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return db
}

func newTestUser(email, username string) (*models.User, *models.UserProfile) {
	id := uuid.NewString()
	user := &models.User{
		ID:             id,
		Email:          email,
		HashedPassword: "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8",
	}
	profile := &models.UserProfile{UserID: id, Username: username}
	return user, profile
}

func countUsers(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	return n
}

func TestTxManager_CommitsOnSuccess(t *testing.T) {
	db := openTestDB(t)
	m := NewTxManager(db)

	user, profile := newTestUser("a@example.com", "alice")
	err := m.RunAtomic(context.Background(), func(ctx context.Context) error {
		tx := FromContext(ctx, db)
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(profile).Error
	})
	require.NoError(t, err)

	assert.EqualValues(t, 1, countUsers(t, db))
	var got models.UserProfile
	require.NoError(t, db.First(&got, "user_id = ?", user.ID).Error)
	assert.Equal(t, "alice", got.Username)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	m := NewTxManager(db)

	sentinel := errors.New("profile write refused")
	user, _ := newTestUser("b@example.com", "bob")
	err := m.RunAtomic(context.Background(), func(ctx context.Context) error {
		tx := FromContext(ctx, db)
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return sentinel
	})

	// Original error surfaces unchanged, and nothing persisted.
	assert.ErrorIs(t, err, sentinel)
	assert.EqualValues(t, 0, countUsers(t, db))
}

func TestTxManager_NestedSavepointRollbackPreservesOuterWork(t *testing.T) {
	db := openTestDB(t)
	m := NewTxManager(db)

	sentinel := errors.New("nested failure")
	outer, outerProfile := newTestUser("outer@example.com", "outer")
	inner, _ := newTestUser("inner@example.com", "inner")

	err := m.RunAtomic(context.Background(), func(ctx context.Context) error {
		tx := FromContext(ctx, db)
		if err := tx.Create(outer).Error; err != nil {
			return err
		}
		if err := tx.Create(outerProfile).Error; err != nil {
			return err
		}

		nestedErr := m.RunAtomic(ctx, func(ctx context.Context) error {
			if err := FromContext(ctx, db).Create(inner).Error; err != nil {
				return err
			}
			return sentinel
		})
		// The nested unit failed and was undone, but the outer unit is intact
		// and may continue.
		assert.ErrorIs(t, nestedErr, sentinel)
		return nil
	})
	require.NoError(t, err)

	assert.EqualValues(t, 1, countUsers(t, db))
	var got models.User
	require.NoError(t, db.First(&got, "id = ?", outer.ID).Error)
	assert.Error(t, db.First(&models.User{}, "id = ?", inner.ID).Error)
}

func TestTxManager_NestedFailurePropagatesWhenOuterReturnsIt(t *testing.T) {
	db := openTestDB(t)
	m := NewTxManager(db)

	sentinel := errors.New("nested failure")
	user, profile := newTestUser("c@example.com", "carol")

	err := m.RunAtomic(context.Background(), func(ctx context.Context) error {
		tx := FromContext(ctx, db)
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		return m.RunAtomic(ctx, func(ctx context.Context) error {
			return sentinel
		})
	})

	// Outer propagated the nested error, so the whole unit rolled back.
	assert.ErrorIs(t, err, sentinel)
	assert.EqualValues(t, 0, countUsers(t, db))
}

func TestTxManager_DeepNesting(t *testing.T) {
	db := openTestDB(t)
	m := NewTxManager(db)

	sentinel := errors.New("third level failure")
	first, firstProfile := newTestUser("d1@example.com", "dora")
	second, secondProfile := newTestUser("d2@example.com", "dave")
	third, _ := newTestUser("d3@example.com", "dana")

	err := m.RunAtomic(context.Background(), func(ctx context.Context) error {
		tx := FromContext(ctx, db)
		if err := tx.Create(first).Error; err != nil {
			return err
		}
		if err := tx.Create(firstProfile).Error; err != nil {
			return err
		}
		return m.RunAtomic(ctx, func(ctx context.Context) error {
			inner := FromContext(ctx, db)
			if err := inner.Create(second).Error; err != nil {
				return err
			}
			if err := inner.Create(secondProfile).Error; err != nil {
				return err
			}
			nestedErr := m.RunAtomic(ctx, func(ctx context.Context) error {
				if err := FromContext(ctx, db).Create(third).Error; err != nil {
					return err
				}
				return sentinel
			})
			assert.ErrorIs(t, nestedErr, sentinel)
			return nil
		})
	})
	require.NoError(t, err)

	// Levels one and two committed; level three rolled back to its savepoint.
	assert.EqualValues(t, 2, countUsers(t, db))
}

func TestTxManager_IndependentOperationsKeepIndependentDepth(t *testing.T) {
	db := openTestDB(t)
	m := NewTxManager(db)

	// Two sequential top-level units must each start at depth zero: the
	// second one's nested savepoint name must not be affected by the first.
	for i, email := range []string{"e1@example.com", "e2@example.com"} {
		user, profile := newTestUser(email, "user"+string(rune('a'+i)))
		err := m.RunAtomic(context.Background(), func(ctx context.Context) error {
			tx := FromContext(ctx, db)
			if err := tx.Create(user).Error; err != nil {
				return err
			}
			return m.RunAtomic(ctx, func(ctx context.Context) error {
				return FromContext(ctx, db).Create(profile).Error
			})
		})
		require.NoError(t, err)
	}

	assert.EqualValues(t, 2, countUsers(t, db))
}

func TestFromContext_FallbackOutsideTransaction(t *testing.T) {
	db := openTestDB(t)
	assert.Same(t, db, FromContext(context.Background(), db))
}
