// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development only.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"plaza/internal/auth"
	"plaza/internal/database"
	"plaza/internal/models"
	"plaza/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DemoPassword is the password every seeded account gets.
const DemoPassword = "password123!"

// Seeder populates the database with generated users and articles.
type Seeder struct {
	db       *gorm.DB
	users    repository.UserRepository
	articles repository.ArticleRepository
	tx       *database.TxManager
	rng      *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:       db,
		users:    repository.NewUserRepository(db),
		articles: repository.NewArticleRepository(db),
		tx:       database.NewTxManager(db),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll removes all seeded data.
func (s *Seeder) ClearAll() error {
	for _, table := range []string{"articles", "user_profiles", "users"} {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// SeedUsers creates n accounts with profiles through the registration write
// path, so every account exercises the same atomic unit production uses.
func (s *Seeder) SeedUsers(ctx context.Context, n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		username := fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), gofakeit.Number(100, 999))
		bio := gofakeit.HipsterWord()
		avatar := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID())

		user := &models.User{
			Email:          gofakeit.Email(),
			HashedPassword: auth.HashPassword(DemoPassword),
		}
		err := s.tx.RunAtomic(ctx, func(ctx context.Context) error {
			if err := s.users.InsertUser(ctx, user); err != nil {
				return err
			}
			return s.users.InsertUserProfile(ctx, &models.UserProfile{
				UserID:    user.ID,
				Username:  username,
				Bio:       &bio,
				AvatarURL: &avatar,
			})
		})
		if err != nil {
			// Generated emails and usernames can collide; skip and move on.
			if models.IsCode(err, models.CodeDuplicateEmail) || models.IsCode(err, models.CodeDuplicateUsername) {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// SeedArticles creates n articles spread across the given authors with a
// realistic created_at spread.
func (s *Seeder) SeedArticles(ctx context.Context, authors []*models.User, n int) error {
	if len(authors) == 0 {
		return fmt.Errorf("no authors to seed articles for")
	}

	categories := []models.ArticleCategory{
		models.CategoryFree,
		models.CategoryCareer,
		models.CategoryExam,
		models.CategoryIndustry,
	}

	for i := 0; i < n; i++ {
		author := authors[s.rng.Intn(len(authors))]
		createdAt := time.Now().
			Add(-time.Duration(s.rng.Intn(90*24)) * time.Hour).
			Add(-time.Duration(s.rng.Intn(60)) * time.Minute)

		article := &models.Article{
			AuthorID:  author.ID,
			Title:     gofakeit.Sentence(5),
			Category:  categories[s.rng.Intn(len(categories))],
			Content:   gofakeit.Paragraph(2, 4, 8, "\n"),
			IsPublic:  s.rng.Intn(10) > 1,
			LikeCount: s.rng.Intn(40),
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
		if err := s.articles.Create(ctx, article); err != nil {
			return err
		}
	}
	return nil
}
