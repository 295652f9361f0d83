package models

import "time"

// ArticleCategory is one of the fixed board categories.
type ArticleCategory string

// Board categories.
const (
	CategoryFree     ArticleCategory = "free"
	CategoryCareer   ArticleCategory = "career"
	CategoryExam     ArticleCategory = "exam"
	CategoryIndustry ArticleCategory = "industry"
)

// Valid reports whether c is a known category.
func (c ArticleCategory) Valid() bool {
	switch c {
	case CategoryFree, CategoryCareer, CategoryExam, CategoryIndustry:
		return true
	}
	return false
}

// Page-size bounds for article listings. Requested limits are clamped to
// [1, MaxPageSize]; DefaultPageSize applies when no limit is given.
const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// Article is a board post owned by exactly one author. The (CreatedAt, ID)
// pair is unique and totally ordered; it is the pagination key. Counters are
// only ever adjusted by relative deltas, never overwritten.
type Article struct {
	ID           string          `gorm:"primaryKey" json:"id"`
	AuthorID     string          `gorm:"index:articles_author_idx;not null" json:"author_id"`
	Author       *User           `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Title        string          `gorm:"not null" json:"title"`
	Category     ArticleCategory `gorm:"index:articles_category_idx;not null;default:free" json:"category"`
	Content      string          `gorm:"not null" json:"content"`
	IsPublic     bool            `gorm:"not null;default:true" json:"is_public"`
	LikeCount    int             `gorm:"not null;default:0" json:"like_count"`
	CommentCount int             `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ArticleCursor marks the last item of a page in the (created_at DESC, id
// DESC) total order. A follow-up listing returns only rows strictly before
// this position.
type ArticleCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// ArticleChanges is a sparse update of article fields.
type ArticleChanges struct {
	Title    Field[string]
	Content  Field[string]
	Category Field[ArticleCategory]
	IsPublic Field[bool]
}

// Empty reports whether no field was provided at all.
func (c ArticleChanges) Empty() bool {
	return !c.Title.Present() && !c.Content.Present() && !c.Category.Present() && !c.IsPublic.Present()
}
