package main

import (
	"flag"
	"log"

	"secnews/internal/aggregator"
	"secnews/internal/config"
	"secnews/internal/feeder"
	"secnews/internal/storage"
)

// One-shot prune entrypoint.
func main() {
	days := flag.Int("days", 30, "delete articles fetched more than this many days ago")
	flag.Parse()

	if *days < 1 {
		log.Fatalf("-days must be positive, got %d", *days)
	}

	cfg := config.Load()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	agg := aggregator.New(cfg, store, feeder.NewFetcher(cfg))
	deleted, err := agg.PruneOlderThan(*days)
	if err != nil {
		log.Fatalf("prune failed: %v", err)
	}
	log.Printf("prune finished, %d articles deleted", deleted)
}
