package server

import (
	"bytes"
	"encoding/json"

	"plaza/internal/middleware"
	"plaza/internal/models"
	"plaza/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateArticle handles POST /api/articles
func (s *Server) CreateArticle(c *fiber.Ctx) error {
	var req struct {
		Title    string                 `json:"title"`
		Category models.ArticleCategory `json:"category"`
		Content  string                 `json:"content"`
		IsPublic *bool                  `json:"is_public"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	article, err := s.articleService.CreateArticle(c.UserContext(), service.CreateArticleInput{
		AuthorID: currentUserID(c),
		Title:    req.Title,
		Category: req.Category,
		Content:  req.Content,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		return respondError(c, err)
	}

	middleware.ArticlesCreatedTotal.WithLabelValues(string(article.Category)).Inc()

	return c.Status(fiber.StatusCreated).JSON(article)
}

// GetArticle handles GET /api/articles/:id
func (s *Server) GetArticle(c *fiber.Ctx) error {
	article, err := s.articleService.GetArticle(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(article)
}

// ListArticles handles GET /api/articles. It pages through public articles of
// one category, newest first.
func (s *Server) ListArticles(c *fiber.Ctx) error {
	category := models.ArticleCategory(c.Query("category", string(models.CategoryFree)))
	cursor, err := decodeCursor(c.Query("cursor"))
	if err != nil {
		return respondError(c, err)
	}

	result, err := s.articleService.ListPublicByCategory(c.UserContext(),
		category, c.QueryInt("limit"), cursor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listResponse(result))
}

// GetMyArticles handles GET /api/users/me/articles, including private rows.
func (s *Server) GetMyArticles(c *fiber.Ctx) error {
	cursor, err := decodeCursor(c.Query("cursor"))
	if err != nil {
		return respondError(c, err)
	}

	result, err := s.articleService.ListByAuthor(c.UserContext(),
		currentUserID(c), c.QueryInt("limit"), cursor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listResponse(result))
}

func listResponse(result *service.ListResult) fiber.Map {
	items := result.Items
	if items == nil {
		items = []*models.Article{}
	}
	resp := fiber.Map{"items": items}
	if result.NextCursor != nil {
		resp["next_cursor"] = encodeCursor(result.NextCursor)
	} else {
		resp["next_cursor"] = nil
	}
	return resp
}

// UpdateArticle handles PUT /api/articles/:id. The body is sparse: absent
// keys leave the column untouched.
func (s *Server) UpdateArticle(c *fiber.Ctx) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	var changes models.ArticleChanges
	var err error
	if changes.Title, err = stringField(raw, "title"); err != nil {
		return respondError(c, err)
	}
	if changes.Content, err = stringField(raw, "content"); err != nil {
		return respondError(c, err)
	}
	if category, ok := raw["category"]; ok {
		var v models.ArticleCategory
		if err := json.Unmarshal(category, &v); err != nil {
			return respondError(c, models.NewValidationError("Field category must be a string"))
		}
		changes.Category = models.SetField(v)
	}
	if isPublic, ok := raw["is_public"]; ok {
		if bytes.Equal(bytes.TrimSpace(isPublic), jsonNull) {
			return respondError(c, models.NewValidationError("Field is_public must be a boolean"))
		}
		var v bool
		if err := json.Unmarshal(isPublic, &v); err != nil {
			return respondError(c, models.NewValidationError("Field is_public must be a boolean"))
		}
		changes.IsPublic = models.SetField(v)
	}

	article, err := s.articleService.UpdateArticle(c.UserContext(),
		c.Params("id"), currentUserID(c), changes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(article)
}

// ReactToArticle handles POST /api/articles/:id/reactions. Deltas are
// relative; the response carries the fresh counters.
func (s *Server) ReactToArticle(c *fiber.Ctx) error {
	var req struct {
		LikeDelta    int `json:"like_delta"`
		CommentDelta int `json:"comment_delta"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	article, err := s.articleService.AdjustCounters(c.UserContext(),
		c.Params("id"), req.LikeDelta, req.CommentDelta)
	if err != nil {
		return respondError(c, err)
	}
	if article == nil {
		return respondError(c, models.NewNotFoundError("Article", c.Params("id")))
	}
	return c.JSON(article)
}

// DeleteArticle handles DELETE /api/articles/:id
func (s *Server) DeleteArticle(c *fiber.Ctx) error {
	if err := s.articleService.DeleteArticle(c.UserContext(),
		c.Params("id"), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
