package aggregator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/driver/sqlite"

	"secnews/internal/config"
	"secnews/internal/feeder"
	"secnews/internal/storage"
)

func testStore(t *testing.T) *storage.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:agg_%s?mode=memory&cache=shared", t.Name())
	s, err := storage.Open(sqlite.Open(dsn), "")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	return s
}

func testConfig(feeds ...config.FeedSeed) *config.Config {
	return &config.Config{
		FetchTimeout:    5 * time.Second,
		FeedConcurrency: 2,
		Feeds:           feeds,
		Categories:      config.DefaultCategories,
	}
}

func serveRSS(t *testing.T, items string) *httptest.Server {
	t.Helper()
	body := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>t</title><link>https://example.com</link><description>d</description>` +
		items + `</channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAggregator(t *testing.T, cfg *config.Config) (*Aggregator, *storage.Store) {
	t.Helper()
	store := testStore(t)
	agg := New(cfg, store, feeder.NewFetcher(cfg))
	return agg, store
}

func TestInitializeSourcesIdempotent(t *testing.T) {
	cfg := testConfig(
		config.FeedSeed{Name: "Feed A", FeedURL: "https://a.example.com/rss"},
		config.FeedSeed{Name: "Feed B", FeedURL: "https://b.example.com/rss"},
	)
	agg, store := newAggregator(t, cfg)

	for i := 0; i < 2; i++ {
		if err := agg.InitializeSources(); err != nil {
			t.Fatalf("InitializeSources #%d: %v", i+1, err)
		}
	}

	sources, err := store.ListSources(false)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("source count = %d, want 2", len(sources))
	}

	cats, err := store.ListCategories()
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != len(config.DefaultCategories) {
		t.Fatalf("category count = %d, want %d", len(cats), len(config.DefaultCategories))
	}
}

func TestInitializeSourcesRejectsDuplicateFeedURL(t *testing.T) {
	cfg := testConfig(
		config.FeedSeed{Name: "First", FeedURL: "https://dup.example.com/rss"},
		config.FeedSeed{Name: "Second", FeedURL: "https://dup.example.com/rss"},
	)
	agg, _ := newAggregator(t, cfg)

	if err := agg.InitializeSources(); err == nil {
		t.Fatalf("expected error for duplicate feed URL in config")
	}
}

func TestRefreshInsertsClassifiedArticles(t *testing.T) {
	srv := serveRSS(t, `
<item>
  <title>Zero-day exploit leaks ransomware builder</title>
  <link>https://example.com/story-1</link>
  <description>A major breach exposed the source.</description>
  <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
</item>
<item>
  <title>Community meetup announced</title>
  <link>https://example.com/story-2</link>
  <description>Agenda and venue details.</description>
</item>`)

	cfg := testConfig(config.FeedSeed{Name: "Test Feed", FeedURL: srv.URL})
	agg, store := newAggregator(t, cfg)
	if err := agg.InitializeSources(); err != nil {
		t.Fatalf("InitializeSources: %v", err)
	}

	count, err := agg.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if count != 2 {
		t.Fatalf("Refresh inserted %d, want 2", count)
	}

	page, err := store.ListArticles(storage.ListOptions{Search: "zero-day"})
	if err != nil || page.Total != 1 {
		t.Fatalf("article lookup failed: %v %+v", err, page)
	}
	a := page.Articles[0]
	if a.Severity != "critical" {
		t.Errorf("severity = %q, want critical", a.Severity)
	}
	slugs := map[string]bool{}
	for _, c := range a.Categories {
		slugs[c.Slug] = true
	}
	for _, want := range []string{"vulnerabilities", "malware", "data-breaches"} {
		if !slugs[want] {
			t.Errorf("missing category %q in %v", want, slugs)
		}
	}

	// The keyword-free entry falls back to general.
	page, err = store.ListArticles(storage.ListOptions{Category: "general"})
	if err != nil || page.Total != 1 {
		t.Fatalf("general fallback lookup: %v %+v", err, page)
	}
	if page.Articles[0].Title != "Community meetup announced" {
		t.Errorf("general article = %q", page.Articles[0].Title)
	}

	// The source's fetch timestamp moves.
	sources, _ := store.ListSources(false)
	if sources[0].LastFetched == nil {
		t.Fatalf("LastFetched not updated after refresh")
	}
}

func TestRefreshIsIdempotentByURL(t *testing.T) {
	srv := serveRSS(t, `
<item><title>Patch released</title><link>https://example.com/patch</link></item>`)

	cfg := testConfig(config.FeedSeed{Name: "Test Feed", FeedURL: srv.URL})
	agg, store := newAggregator(t, cfg)
	if err := agg.InitializeSources(); err != nil {
		t.Fatalf("InitializeSources: %v", err)
	}

	first, err := agg.Refresh(context.Background())
	if err != nil || first != 1 {
		t.Fatalf("first Refresh = (%d, %v), want (1, nil)", first, err)
	}
	second, err := agg.Refresh(context.Background())
	if err != nil || second != 0 {
		t.Fatalf("second Refresh = (%d, %v), want (0, nil)", second, err)
	}

	page, _ := store.ListArticles(storage.ListOptions{})
	if page.Total != 1 {
		t.Fatalf("article total = %d, want 1", page.Total)
	}
}

func TestRefreshIsolatesFailingSources(t *testing.T) {
	good := serveRSS(t, `
<item><title>Exploit writeup</title><link>https://example.com/ok</link></item>`)

	cfg := testConfig(
		config.FeedSeed{Name: "Broken", FeedURL: "http://127.0.0.1:1/feed"},
		config.FeedSeed{Name: "Good", FeedURL: good.URL},
	)
	agg, _ := newAggregator(t, cfg)
	if err := agg.InitializeSources(); err != nil {
		t.Fatalf("InitializeSources: %v", err)
	}

	count, err := agg.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh should not fail on one broken source: %v", err)
	}
	if count != 1 {
		t.Fatalf("Refresh = %d, want 1 from the good source", count)
	}
}

func TestRefreshHonorsCancellation(t *testing.T) {
	srv := serveRSS(t, `
<item><title>Never ingested</title><link>https://example.com/cancelled</link></item>`)

	cfg := testConfig(config.FeedSeed{Name: "Feed", FeedURL: srv.URL})
	agg, _ := newAggregator(t, cfg)
	if err := agg.InitializeSources(); err != nil {
		t.Fatalf("InitializeSources: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count, err := agg.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if count != 0 {
		t.Fatalf("cancelled refresh inserted %d articles", count)
	}
}

func TestPruneOlderThanViaAggregator(t *testing.T) {
	cfg := testConfig()
	agg, store := newAggregator(t, cfg)
	if err := agg.InitializeSources(); err != nil {
		t.Fatalf("InitializeSources: %v", err)
	}

	src, _ := store.EnsureSource("Feed", "https://x.example.com", "https://x.example.com/rss", "")
	now := time.Now().UTC()
	for i, days := range []int{0, 10, 40} {
		a := &storage.Article{
			Title:     fmt.Sprintf("Article %d", i),
			URL:       fmt.Sprintf("https://x.example.com/p/%d", i),
			FetchedAt: now.AddDate(0, 0, -days),
			Severity:  "info",
			SourceID:  src.ID,
		}
		if _, err := store.CreateArticle(a); err != nil {
			t.Fatalf("CreateArticle: %v", err)
		}
	}

	deleted, err := agg.PruneOlderThan(30)
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
}
