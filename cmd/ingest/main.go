package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentinela/internal/config"
	"sentinela/internal/db"
	"sentinela/internal/ingest"
	"sentinela/internal/logger"
	"sentinela/internal/pkg/transparencia"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	l := logger.Init(cfg.LogLevel)

	conn, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("Failed to prepare database: %v", err)
	}

	portal, err := transparencia.New(transparencia.Options{
		BaseURL:           cfg.PortalBaseURL,
		ListTimeout:       cfg.ListTimeout,
		DetailTimeout:     cfg.DetailTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            l,
	})
	if err != nil {
		log.Fatalf("Failed to create portal client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode := ingest.ModeFromFlag(cfg.Historical)
	now := time.Now()
	periods := ingest.Periods(mode, now, cfg.HistoryStartYear)
	if mode == ingest.ModeBackfill {
		l.Info("historical backfill", "from", cfg.HistoryStartYear, "to", now.Year(), "periods", len(periods))
	} else {
		l.Info("monthly maintenance", "year", now.Year(), "periods", len(periods))
	}

	orchestrator := ingest.NewOrchestrator(portal, db.NewPayrollRepository(conn), cfg.FetchWorkers, l)
	summary := orchestrator.Run(ctx, periods)

	summary.Render(os.Stdout)
	fmt.Printf("Total saved: %d\n", summary.TotalSaved)
}
