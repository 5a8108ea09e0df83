package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Source is a configured feed origin.
type Source struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:100;uniqueIndex" json:"name"`
	URL         string     `gorm:"size:500" json:"url"`
	FeedURL     string     `gorm:"size:500;uniqueIndex" json:"feedUrl"`
	Description string     `gorm:"type:text" json:"description"`
	Active      bool       `gorm:"index" json:"active"`
	LastFetched *time.Time `json:"lastFetched"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Category is a topical tag; seeded once, read-only afterwards.
type Category struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:50;uniqueIndex" json:"name"`
	Slug  string `gorm:"size:50;uniqueIndex" json:"slug"`
	Color string `gorm:"size:7" json:"color"`

	Articles []*Article `gorm:"many2many:article_categories" json:"-"`
}

// Article is one ingested news item. URL carries the uniqueness constraint
// that makes refresh cycles idempotent: first write wins, later inserts of
// the same URL are skipped.
type Article struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Title       string            `gorm:"size:500" json:"title"`
	Description string            `gorm:"size:2000" json:"description"`
	Content     string            `gorm:"size:5000" json:"content"`
	URL         string            `gorm:"size:1000;uniqueIndex" json:"url"`
	ImageURL    string            `gorm:"size:1000" json:"imageUrl"`
	PublishedAt time.Time         `gorm:"index" json:"publishedAt"`
	FetchedAt   time.Time         `gorm:"index" json:"fetchedAt"`
	Severity    string            `gorm:"size:16;index" json:"severity"`
	Extra       datatypes.JSONMap `gorm:"type:jsonb" json:"extra,omitempty"`

	SourceID   uint        `gorm:"index" json:"sourceId"`
	Source     Source      `json:"source"`
	Categories []*Category `gorm:"many2many:article_categories" json:"categories"`

	CreatedAt time.Time `json:"createdAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStore connects to postgres and, when an address is configured, redis.
func NewStore(dsn, redisAddr string) (*Store, error) {
	return Open(postgres.Open(dsn), redisAddr)
}

// Open builds a Store on any gorm dialector. Tests use this with an
// in-memory sqlite database.
func Open(dialector gorm.Dialector, redisAddr string) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}

	if err := db.AutoMigrate(&Source{}, &Category{}, &Article{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}

	var rdb *redis.Client
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed: %v", err)
		}
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// EnsureSource creates the source unless one with the same feed URL exists.
func (s *Store) EnsureSource(name, siteURL, feedURL, description string) (*Source, error) {
	src := &Source{}
	if err := s.DB.Where("feed_url = ?", feedURL).First(src).Error; err == nil {
		return src, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("storage: query source: %w", err)
	}

	src = &Source{
		Name:        name,
		URL:         siteURL,
		FeedURL:     feedURL,
		Description: description,
		Active:      true,
	}
	if err := s.DB.Create(src).Error; err != nil {
		return nil, fmt.Errorf("storage: create source: %w", err)
	}
	return src, nil
}

// EnsureCategory creates the category unless the slug is already taken.
func (s *Store) EnsureCategory(name, slug, color string) (*Category, error) {
	cat := &Category{}
	if err := s.DB.Where("slug = ?", slug).First(cat).Error; err == nil {
		return cat, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("storage: query category: %w", err)
	}

	cat = &Category{Name: name, Slug: slug, Color: color}
	if err := s.DB.Create(cat).Error; err != nil {
		return nil, fmt.Errorf("storage: create category: %w", err)
	}
	return cat, nil
}

func (s *Store) ActiveSources() ([]Source, error) {
	var sources []Source
	if err := s.DB.Where("active = ?", true).Order("id").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("storage: list active sources: %w", err)
	}
	return sources, nil
}

func (s *Store) ListSources(activeOnly bool) ([]Source, error) {
	db := s.DB.Order("id")
	if activeOnly {
		db = db.Where("active = ?", true)
	}
	var sources []Source
	if err := db.Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("storage: list sources: %w", err)
	}
	return sources, nil
}

func (s *Store) SourceByID(id uint) (*Source, error) {
	src := &Source{}
	if err := s.DB.First(src, id).Error; err != nil {
		return nil, err
	}
	return src, nil
}

// ToggleSource flips the active flag and returns the updated source.
func (s *Store) ToggleSource(id uint) (*Source, error) {
	src := &Source{}
	if err := s.DB.First(src, id).Error; err != nil {
		return nil, err
	}
	src.Active = !src.Active
	if err := s.DB.Model(src).Update("active", src.Active).Error; err != nil {
		return nil, fmt.Errorf("storage: toggle source %d: %w", id, err)
	}
	return src, nil
}

func (s *Store) UpdateSourceLastFetched(id uint, t time.Time) error {
	if err := s.DB.Model(&Source{}).Where("id = ?", id).Update("last_fetched", t).Error; err != nil {
		return fmt.Errorf("storage: update last_fetched for source %d: %w", id, err)
	}
	return nil
}

// CategoryBySlug returns (nil, nil) when no category carries the slug, so
// callers can silently drop unknown classification candidates.
func (s *Store) CategoryBySlug(slug string) (*Category, error) {
	cat := &Category{}
	err := s.DB.Where("slug = ?", slug).First(cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: category by slug %q: %w", slug, err)
	}
	return cat, nil
}

func (s *Store) ListCategories() ([]Category, error) {
	var cats []Category
	if err := s.DB.Order("id").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("storage: list categories: %w", err)
	}
	return cats, nil
}

func (s *Store) HasArticle(url string) (bool, error) {
	var count int64
	if err := s.DB.Model(&Article{}).Where("url = ?", url).Count(&count).Error; err != nil {
		return false, fmt.Errorf("storage: article exists %s: %w", url, err)
	}
	return count > 0, nil
}

// CreateArticle inserts the article and its category associations as one
// atomic unit. The URL uniqueness constraint is the authoritative guard
// against concurrent duplicate inserts; a duplicate-key error reports
// (false, nil) so races degrade to a benign skip.
func (s *Store) CreateArticle(a *Article) (bool, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(a).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("storage: create article %s: %w", a.URL, err)
	}
	return true, nil
}

// PruneOlderThan bulk-deletes articles fetched before the cutoff, clearing
// their category join rows in the same transaction.
func (s *Store) PruneOlderThan(cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&Article{}).Where("fetched_at < ?", cutoff).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Exec("DELETE FROM article_categories WHERE article_id IN ?", ids).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&Article{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("storage: prune: %w", err)
	}
	return deleted, nil
}
