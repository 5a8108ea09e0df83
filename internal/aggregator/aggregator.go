// Package aggregator orchestrates the ingestion pipeline: it fans out over
// active sources, deduplicates fetched entries by URL, classifies them and
// persists the survivors.
package aggregator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/datatypes"

	"secnews/internal/classify"
	"secnews/internal/config"
	"secnews/internal/feeder"
	"secnews/internal/storage"
)

const fallbackCategorySlug = "general"

type Aggregator struct {
	cfg    *config.Config
	store  *storage.Store
	feeder *feeder.Fetcher
}

func New(cfg *config.Config, store *storage.Store, f *feeder.Fetcher) *Aggregator {
	return &Aggregator{cfg: cfg, store: store, feeder: f}
}

// InitializeSources seeds sources and categories from the configured lists.
// Safe to call on every start: existing rows (by feed URL / slug) are left
// alone. Two seed entries sharing a feed URL is a configuration error.
func (a *Aggregator) InitializeSources() error {
	seen := make(map[string]string, len(a.cfg.Feeds))
	for _, f := range a.cfg.Feeds {
		if prev, dup := seen[f.FeedURL]; dup {
			return fmt.Errorf("aggregator: feed URL %s configured for both %q and %q", f.FeedURL, prev, f.Name)
		}
		seen[f.FeedURL] = f.Name
	}

	for _, f := range a.cfg.Feeds {
		desc := fmt.Sprintf("RSS feed from %s", f.Name)
		if _, err := a.store.EnsureSource(f.Name, f.FeedURL, f.FeedURL, desc); err != nil {
			return err
		}
	}
	for _, c := range a.cfg.Categories {
		if _, err := a.store.EnsureCategory(c.Name, c.Slug, c.Color); err != nil {
			return err
		}
	}
	return nil
}

// Refresh fetches every active source once and returns the number of newly
// inserted articles. A failing source is logged and skipped; only a storage
// failure on the initial source query aborts the run. Cancellation is
// honored at per-source boundaries.
func (a *Aggregator) Refresh(ctx context.Context) (int, error) {
	sources, err := a.store.ActiveSources()
	if err != nil {
		return 0, err
	}

	concurrency := a.cfg.FeedConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu    sync.Mutex
		total int
		wg    sync.WaitGroup
		sem   = make(chan struct{}, concurrency)
	)

	for _, src := range sources {
		if ctx.Err() != nil {
			log.Printf("aggregator: refresh cancelled, skipping remaining sources")
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(src storage.Source) {
			defer wg.Done()
			defer func() { <-sem }()

			n := a.refreshSource(ctx, src)
			mu.Lock()
			total += n
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	log.Printf("aggregator: refresh done, %d new articles", total)
	return total, nil
}

func (a *Aggregator) refreshSource(ctx context.Context, src storage.Source) int {
	items, err := a.feeder.FetchArticles(ctx, src.FeedURL)
	if err != nil {
		log.Printf("aggregator: fetch %s: %v", src.Name, err)
		return 0
	}

	inserted := 0
	for _, ra := range items {
		ok, err := a.ingest(src, ra)
		if err != nil {
			log.Printf("aggregator: ingest %s: %v", ra.URL, err)
			continue
		}
		if ok {
			inserted++
		}
	}

	if err := a.store.UpdateSourceLastFetched(src.ID, time.Now().UTC()); err != nil {
		log.Printf("aggregator: %v", err)
	}

	log.Printf("aggregator: %s done, fetched=%d new=%d", src.Name, len(items), inserted)
	return inserted
}

// ingest persists one raw article unless its URL is already known. The
// pre-check keeps classification work off known URLs; the uniqueness
// constraint inside CreateArticle settles concurrent races.
func (a *Aggregator) ingest(src storage.Source, ra feeder.RawArticle) (bool, error) {
	exists, err := a.store.HasArticle(ra.URL)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	text := ra.Title + " " + ra.Description
	cats, err := a.resolveCategories(text)
	if err != nil {
		return false, err
	}

	article := &storage.Article{
		Title:       ra.Title,
		Description: ra.Description,
		Content:     ra.Content,
		URL:         ra.URL,
		ImageURL:    ra.ImageURL,
		PublishedAt: ra.Published,
		FetchedAt:   time.Now().UTC(),
		Severity:    string(classify.Severity(text)),
		Extra:       datatypes.JSONMap(ra.Extra),
		SourceID:    src.ID,
		Categories:  cats,
	}
	return a.store.CreateArticle(article)
}

// resolveCategories maps matched slugs to stored categories, dropping slugs
// absent from the taxonomy. Articles matching nothing land in "general"
// when that category exists.
func (a *Aggregator) resolveCategories(text string) ([]*storage.Category, error) {
	var cats []*storage.Category
	for _, slug := range classify.Categories(text) {
		cat, err := a.store.CategoryBySlug(slug)
		if err != nil {
			return nil, err
		}
		if cat != nil {
			cats = append(cats, cat)
		}
	}

	if len(cats) == 0 {
		general, err := a.store.CategoryBySlug(fallbackCategorySlug)
		if err != nil {
			return nil, err
		}
		if general != nil {
			cats = append(cats, general)
		}
	}
	return cats, nil
}

// PruneOlderThan bulk-deletes articles whose fetched timestamp is older
// than the given number of days and returns the count removed.
func (a *Aggregator) PruneOlderThan(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := a.store.PruneOlderThan(cutoff)
	if err != nil {
		return 0, err
	}
	log.Printf("aggregator: pruned %d articles older than %d days", deleted, days)
	return deleted, nil
}
