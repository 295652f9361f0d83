package service

import (
	"context"
	"strings"
	"time"

	"plaza/internal/database"
	"plaza/internal/models"
	"plaza/internal/repository"
)

type ArticleService struct {
	articleRepo repository.ArticleRepository
	userRepo    repository.UserRepository
	tx          *database.TxManager
}

func NewArticleService(articleRepo repository.ArticleRepository, userRepo repository.UserRepository, tx *database.TxManager) *ArticleService {
	return &ArticleService{articleRepo: articleRepo, userRepo: userRepo, tx: tx}
}

type CreateArticleInput struct {
	AuthorID string
	Title    string
	Category models.ArticleCategory
	Content  string
	IsPublic *bool
}

// ListResult is one page of articles. NextCursor is set only when the page is
// full; a nil cursor means the listing is exhausted.
type ListResult struct {
	Items      []*models.Article
	NextCursor *models.ArticleCursor
}

// clampLimit bounds a requested page size to [1, MaxPageSize], substituting
// DefaultPageSize when the caller gave none.
func clampLimit(limit int) int {
	if limit <= 0 {
		return models.DefaultPageSize
	}
	if limit > models.MaxPageSize {
		return models.MaxPageSize
	}
	return limit
}

func (s *ArticleService) CreateArticle(ctx context.Context, in CreateArticleInput) (*models.Article, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	category := in.Category
	if category == "" {
		category = models.CategoryFree
	}
	if !category.Valid() {
		return nil, models.NewValidationError("Invalid category")
	}

	author, err := s.userRepo.FindByID(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, models.NewNotFoundError("User", in.AuthorID)
	}

	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}

	article := &models.Article{
		AuthorID: in.AuthorID,
		Title:    in.Title,
		Category: category,
		Content:  in.Content,
		IsPublic: isPublic,
	}
	if err := s.articleRepo.Create(ctx, article); err != nil {
		return nil, err
	}

	return s.articleRepo.FindDetailedByID(ctx, article.ID)
}

func (s *ArticleService) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	article, err := s.articleRepo.FindDetailedByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, models.NewNotFoundError("Article", id)
	}
	return article, nil
}

// ListByAuthor pages through everything an author wrote, public or not.
func (s *ArticleService) ListByAuthor(ctx context.Context, authorID string, limit int, cursor *models.ArticleCursor) (*ListResult, error) {
	return s.list(ctx, repository.ArticleFilter{AuthorID: authorID}, limit, cursor)
}

// ListPublicByCategory pages through the public articles of one category.
func (s *ArticleService) ListPublicByCategory(ctx context.Context, category models.ArticleCategory, limit int, cursor *models.ArticleCursor) (*ListResult, error) {
	if !category.Valid() {
		return nil, models.NewValidationError("Invalid category")
	}
	return s.list(ctx, repository.ArticleFilter{
		Category:   category,
		PublicOnly: true,
	}, limit, cursor)
}

func (s *ArticleService) list(ctx context.Context, filter repository.ArticleFilter, limit int, cursor *models.ArticleCursor) (*ListResult, error) {
	limit = clampLimit(limit)

	items, err := s.articleRepo.List(ctx, filter, limit, cursor)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Items: items}
	// A full page may have more rows behind it; a short page never does.
	if len(items) == limit {
		last := items[len(items)-1]
		result.NextCursor = &models.ArticleCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		}
	}
	return result, nil
}

// UpdateArticle applies a sparse edit. Only the author may edit an article.
func (s *ArticleService) UpdateArticle(ctx context.Context, id, authorID string, changes models.ArticleChanges) (*models.Article, error) {
	article, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, models.NewNotFoundError("Article", id)
	}
	if article.AuthorID != authorID {
		return nil, models.NewUnauthorizedError("Only the author can modify this article")
	}

	found, err := s.articleRepo.Update(ctx, id, changes, time.Now())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.NewNotFoundError("Article", id)
	}

	return s.articleRepo.FindDetailedByID(ctx, id)
}

// AdjustCounters moves the like/comment counters by relative deltas and
// returns the fresh row. Zero deltas skip the write and just read. A missing
// article returns nil without error so reaction races stay quiet.
func (s *ArticleService) AdjustCounters(ctx context.Context, id string, likeDelta, commentDelta int) (*models.Article, error) {
	if likeDelta == 0 && commentDelta == 0 {
		return s.articleRepo.FindDetailedByID(ctx, id)
	}

	var fresh *models.Article
	err := s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		found, err := s.articleRepo.AdjustCounters(ctx, id, likeDelta, commentDelta, time.Now())
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		fresh, err = s.articleRepo.FindDetailedByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// DeleteArticle removes an article. Only the author may delete it.
func (s *ArticleService) DeleteArticle(ctx context.Context, id, authorID string) error {
	article, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if article == nil {
		return models.NewNotFoundError("Article", id)
	}
	if article.AuthorID != authorID {
		return models.NewUnauthorizedError("Only the author can modify this article")
	}

	found, err := s.articleRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return models.NewNotFoundError("Article", id)
	}
	return nil
}
