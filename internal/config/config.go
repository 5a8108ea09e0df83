package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	// RefreshCronSpec drives the periodic feed refresh, PruneCronSpec the
	// daily cleanup of stale articles.
	RefreshCronSpec string
	PruneCronSpec   string
	PruneAfterDays  int

	FetchTimeout    time.Duration
	FeedConcurrency int

	// ScrapePageImages enables fetching the article page for an og:image
	// when the feed entry itself carries no usable image.
	ScrapePageImages bool

	Feeds      []FeedSeed
	Categories []CategorySeed
}

// FeedSeed is one pre-configured feed origin. The list is static for the
// process lifetime; sources are created from it idempotently at startup.
type FeedSeed struct {
	Name         string
	FeedURL      string
	CategoryHint string
}

type CategorySeed struct {
	Name  string
	Slug  string
	Color string
}

func Load() *Config {
	cfg := &Config{
		AppPort:          getEnv("APP_PORT", "9000"),
		PostgresDSN:      getEnv("POSTGRES_DSN", "host=localhost user=secnews password=secnews dbname=secnews port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RefreshCronSpec:  getEnv("CRON_SPEC", "*/30 * * * *"),
		PruneCronSpec:    getEnv("PRUNE_CRON_SPEC", "0 4 * * *"),
		PruneAfterDays:   getEnvInt("PRUNE_AFTER_DAYS", 30),
		FetchTimeout:     time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 30)) * time.Second,
		FeedConcurrency:  getEnvInt("FEED_CONCURRENCY", 4),
		ScrapePageImages: getEnv("SCRAPE_PAGE_IMAGES", "") == "true",
		Feeds:            DefaultFeeds,
		Categories:       DefaultCategories,
	}

	log.Printf("config loaded: port=%s cron=%s feeds=%d", cfg.AppPort, cfg.RefreshCronSpec, len(cfg.Feeds))
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("config: invalid %s=%q, using %d", key, v, def)
	}
	return def
}

// DefaultFeeds is the seed list of security news feeds.
var DefaultFeeds = []FeedSeed{
	{Name: "The Hacker News", FeedURL: "https://feeds.feedburner.com/TheHackersNews", CategoryHint: "general"},
	{Name: "SecurityWeek", FeedURL: "https://feeds.feedburner.com/Securityweek", CategoryHint: "general"},
	{Name: "Krebs on Security", FeedURL: "https://krebsonsecurity.com/feed/", CategoryHint: "general"},
	{Name: "ThreatPost", FeedURL: "https://threatpost.com/feed/", CategoryHint: "threats"},
	{Name: "Dark Reading", FeedURL: "https://www.darkreading.com/rss.xml", CategoryHint: "general"},
	{Name: "BleepingComputer", FeedURL: "https://www.bleepingcomputer.com/feed/", CategoryHint: "general"},
	{Name: "CISA Alerts", FeedURL: "https://www.cisa.gov/uscert/ncas/alerts.xml", CategoryHint: "vulnerabilities"},
	{Name: "Zero Day Initiative", FeedURL: "https://www.zerodayinitiative.com/rss/published/", CategoryHint: "vulnerabilities"},
}

// DefaultCategories is the fixed category taxonomy; "general" is the
// fallback for articles matching no keyword group.
var DefaultCategories = []CategorySeed{
	{Name: "Vulnerabilities", Slug: "vulnerabilities", Color: "#FF6B6B"},
	{Name: "Data Breaches", Slug: "data-breaches", Color: "#FFA500"},
	{Name: "Malware", Slug: "malware", Color: "#9B59B6"},
	{Name: "Security Tools", Slug: "security-tools", Color: "#3498DB"},
	{Name: "Best Practices", Slug: "best-practices", Color: "#2ECC71"},
	{Name: "Threats", Slug: "threats", Color: "#E74C3C"},
	{Name: "General", Slug: "general", Color: "#95A5A6"},
}
