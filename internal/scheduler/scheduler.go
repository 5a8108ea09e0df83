package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"secnews/internal/aggregator"
	"secnews/internal/config"
)

// Scheduler drives the periodic refresh and prune cycles.
type Scheduler struct {
	cron *cron.Cron
	agg  *aggregator.Aggregator
	cfg  *config.Config
}

func New(cfg *config.Config, agg *aggregator.Aggregator) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c, agg: agg, cfg: cfg}

	if _, err := c.AddFunc(cfg.RefreshCronSpec, s.runRefresh); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(cfg.PruneCronSpec, s.runPrune); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// Delay the first refresh so startup traffic is served before the
	// fetch fan-out begins.
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() {
		go s.runRefresh()
	})
}

func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunRefresh triggers a single refresh cycle outside the cron schedule.
func (s *Scheduler) RunRefresh() {
	s.runRefresh()
}

func (s *Scheduler) runRefresh() {
	log.Println("scheduler: refresh cycle starting...")
	count, err := s.agg.Refresh(context.Background())
	if err != nil {
		log.Printf("scheduler: refresh failed: %v", err)
		return
	}
	log.Printf("scheduler: refresh cycle done, %d new articles", count)
}

func (s *Scheduler) runPrune() {
	if _, err := s.agg.PruneOlderThan(s.cfg.PruneAfterDays); err != nil {
		log.Printf("scheduler: prune failed: %v", err)
	}
}
