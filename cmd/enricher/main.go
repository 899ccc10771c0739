package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"osservatorio/internal/config"
	"osservatorio/internal/enrich"
	"osservatorio/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := store.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	delay, err := time.ParseDuration(cfg.Enrich.RequestDelay)
	if err != nil {
		log.Fatalf("Invalid WIKI_REQUEST_DELAY %q: %v", cfg.Enrich.RequestDelay, err)
	}

	wiki := enrich.NewClient(cfg.Enrich.WikipediaLang, cfg.Enrich.SummaryChars)
	runner := enrich.NewRunner(db, wiki, delay)

	if cfg.Enrich.CronSchedule == "" {
		if _, err := runner.Run(context.Background()); err != nil {
			log.Fatalf("Enrichment run failed: %v", err)
		}
		return
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Enrich.CronSchedule, func() {
		if _, err := runner.Run(context.Background()); err != nil {
			log.Printf("Enrichment run failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Invalid ENRICH_CRON_SCHEDULE %q: %v", cfg.Enrich.CronSchedule, err)
	}
	c.Start()
	log.Printf("Enricher scheduled with %q", cfg.Enrich.CronSchedule)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stopping enricher...")
	<-c.Stop().Done()
}
