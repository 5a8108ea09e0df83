package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	listCacheTTL = 5 * time.Minute
)

// ListOptions filters and paginates the article listing. Zero values mean
// "no filter".
type ListOptions struct {
	Page     int
	PageSize int
	Severity string
	Category string // category slug
	SourceID uint
	Search   string
	Days     int // only articles published within the last N days
}

// ArticlePage is one page of results plus the unpaginated total.
type ArticlePage struct {
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
	Articles []Article `json:"articles"`
}

// ListArticles returns a filtered page of articles ordered by published
// time, newest first. Pages are cached in redis for a short TTL when a
// client is configured; the cache expires naturally, there is no explicit
// invalidation.
func (s *Store) ListArticles(opts ListOptions) (*ArticlePage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("news:list:%d:%d:%s:%s:%d:%s:%d",
		opts.Page, opts.PageSize, opts.Severity, opts.Category, opts.SourceID, opts.Search, opts.Days)

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			cached := &ArticlePage{}
			if err := json.Unmarshal(bs, cached); err == nil {
				return cached, nil
			}
		}
	}

	db := s.DB.Model(&Article{})
	if opts.Severity != "" {
		db = db.Where("severity = ?", opts.Severity)
	}
	if opts.Category != "" {
		db = db.Joins("JOIN article_categories ac ON ac.article_id = articles.id").
			Joins("JOIN categories c ON c.id = ac.category_id").
			Where("c.slug = ?", opts.Category)
	}
	if opts.SourceID != 0 {
		db = db.Where("source_id = ?", opts.SourceID)
	}
	if opts.Search != "" {
		// LOWER/LIKE instead of ILIKE so the same query runs on postgres
		// and the sqlite test database.
		term := "%" + opts.Search + "%"
		db = db.Where("LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", term, term)
	}
	if opts.Days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -opts.Days)
		db = db.Where("published_at >= ?", cutoff)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("storage: count articles: %w", err)
	}

	var articles []Article
	err := db.Preload("Source").Preload("Categories").
		Order("published_at DESC").
		Offset((opts.Page - 1) * opts.PageSize).
		Limit(opts.PageSize).
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("storage: list articles: %w", err)
	}

	page := &ArticlePage{
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.PageSize,
		Articles: articles,
	}

	if s.Redis != nil && len(articles) > 0 {
		if bs, err := json.Marshal(page); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return page, nil
}

func (s *Store) ArticleByID(id uint) (*Article, error) {
	a := &Article{}
	if err := s.DB.Preload("Source").Preload("Categories").First(a, id).Error; err != nil {
		return nil, err
	}
	return a, nil
}
