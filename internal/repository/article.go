package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"plaza/internal/database"
	"plaza/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArticleFilter narrows a listing to an author, or to public articles of a
// category. Zero fields are ignored.
type ArticleFilter struct {
	AuthorID   string
	Category   models.ArticleCategory
	PublicOnly bool
}

// ArticleRepository defines persistence operations for articles.
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	FindByID(ctx context.Context, id string) (*models.Article, error)
	FindDetailedByID(ctx context.Context, id string) (*models.Article, error)
	List(ctx context.Context, filter ArticleFilter, limit int, cursor *models.ArticleCursor) ([]*models.Article, error)
	Update(ctx context.Context, id string, changes models.ArticleChanges, at time.Time) (bool, error)
	AdjustCounters(ctx context.Context, id string, likeDelta, commentDelta int, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *articleRepository) Create(ctx context.Context, article *models.Article) error {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	article.Title = strings.TrimSpace(article.Title)
	article.Content = strings.TrimSpace(article.Content)

	if err := r.conn(ctx).Create(article).Error; err != nil {
		if isTransient(err) {
			return models.NewTransientStorageError(err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *articleRepository) FindByID(ctx context.Context, id string) (*models.Article, error) {
	var article models.Article
	err := r.conn(ctx).Where("id = ?", id).First(&article).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if isTransient(err) {
			return nil, models.NewTransientStorageError(err)
		}
		return nil, models.NewInternalError(err)
	}
	return &article, nil
}

func (r *articleRepository) FindDetailedByID(ctx context.Context, id string) (*models.Article, error) {
	var article models.Article
	err := r.conn(ctx).
		Preload("Author").
		Preload("Author.Profile").
		Where("id = ?", id).
		First(&article).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if isTransient(err) {
			return nil, models.NewTransientStorageError(err)
		}
		return nil, models.NewInternalError(err)
	}
	return &article, nil
}

// List returns up to limit articles matching filter in (created_at DESC, id
// DESC) order. When a cursor is given only rows strictly before that position
// in the total order are returned.
func (r *articleRepository) List(ctx context.Context, filter ArticleFilter, limit int, cursor *models.ArticleCursor) ([]*models.Article, error) {
	q := r.conn(ctx).
		Model(&models.Article{}).
		Preload("Author").
		Preload("Author.Profile")

	if filter.AuthorID != "" {
		q = q.Where("author_id = ?", filter.AuthorID)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.PublicOnly {
		q = q.Where("is_public = ?", true)
	}

	if cursor != nil {
		if cursor.ID == "" {
			return nil, models.NewValidationError("Invalid article cursor")
		}
		q = q.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var articles []*models.Article
	err := q.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		if isTransient(err) {
			return nil, models.NewTransientStorageError(err)
		}
		return nil, models.NewInternalError(err)
	}
	return articles, nil
}

func (r *articleRepository) Update(ctx context.Context, id string, changes models.ArticleChanges, at time.Time) (bool, error) {
	updates := map[string]interface{}{}

	if changes.Title.Present() {
		v := changes.Title.Value()
		if v == nil || strings.TrimSpace(*v) == "" {
			return false, models.NewValidationError("Title is required")
		}
		updates["title"] = strings.TrimSpace(*v)
	}
	if changes.Content.Present() {
		v := changes.Content.Value()
		if v == nil || strings.TrimSpace(*v) == "" {
			return false, models.NewValidationError("Content is required")
		}
		updates["content"] = strings.TrimSpace(*v)
	}
	if changes.Category.Present() {
		v := changes.Category.Value()
		if v == nil || !v.Valid() {
			return false, models.NewValidationError("Invalid category")
		}
		updates["category"] = *v
	}
	if changes.IsPublic.Present() {
		v := changes.IsPublic.Value()
		if v == nil {
			return false, models.NewValidationError("is_public cannot be cleared")
		}
		updates["is_public"] = *v
	}

	if len(updates) == 0 {
		// Nothing to change; report whether the row exists.
		article, err := r.FindByID(ctx, id)
		if err != nil {
			return false, err
		}
		return article != nil, nil
	}

	updates["updated_at"] = at

	res := r.conn(ctx).
		Model(&models.Article{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		if isTransient(res.Error) {
			return false, models.NewTransientStorageError(res.Error)
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AdjustCounters applies relative deltas to the like/comment counters.
// Counters are never overwritten with absolute values, so concurrent
// adjustments cannot lose updates.
func (r *articleRepository) AdjustCounters(ctx context.Context, id string, likeDelta, commentDelta int, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"updated_at": at,
	}
	if likeDelta != 0 {
		updates["like_count"] = gorm.Expr("like_count + ?", likeDelta)
	}
	if commentDelta != 0 {
		updates["comment_count"] = gorm.Expr("comment_count + ?", commentDelta)
	}

	res := r.conn(ctx).
		Model(&models.Article{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		if isTransient(res.Error) {
			return false, models.NewTransientStorageError(res.Error)
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *articleRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.conn(ctx).Where("id = ?", id).Delete(&models.Article{})
	if res.Error != nil {
		if isTransient(res.Error) {
			return false, models.NewTransientStorageError(res.Error)
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}
