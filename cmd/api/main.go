package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"secnews/internal/aggregator"
	"secnews/internal/api"
	"secnews/internal/config"
	"secnews/internal/feeder"
	"secnews/internal/scheduler"
	"secnews/internal/storage"
)

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

	s, err := scheduler.New(cfg, agg)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	r := gin.Default()
	api.NewServer(store, agg).RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}
