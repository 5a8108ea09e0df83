package main

import (
	"context"
	"log"

	"secnews/internal/aggregator"
	"secnews/internal/config"
	"secnews/internal/feeder"
	"secnews/internal/storage"
)

// One-shot refresh entrypoint for manual or external scheduling.
func main() {
	cfg := config.Load()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	agg := aggregator.New(cfg, store, feeder.NewFetcher(cfg))
	if err := agg.InitializeSources(); err != nil {
		log.Fatalf("initialize sources failed: %v", err)
	}

	count, err := agg.Refresh(context.Background())
	if err != nil {
		log.Fatalf("refresh failed: %v", err)
	}
	log.Printf("refresh finished, %d new articles", count)
}
