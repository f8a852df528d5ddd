package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentinela/internal/config"
	"sentinela/internal/db"
	"sentinela/internal/logger"
	"sentinela/internal/tasks"

	"github.com/hibiken/asynq"
)

const ingestUniqueTTL = 12 * time.Hour

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
	log.Println("Worker connected to database.")

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	ingestTask, err := tasks.NewIngestPayrollTask(cfg.Historical)
	if err != nil {
		log.Fatalf("Failed to create ingest task: %v", err)
	}

	// one ingestion at a time; a run may take longer than the interval
	entryID, err := scheduler.Register(cfg.IngestCron, ingestTask, asynq.Queue("default"), asynq.Unique(ingestUniqueTTL))
	if err != nil {
		log.Fatalf("Failed to register periodic task: %v", err)
	}
	log.Printf("Registered periodic task: %s (EntryID: %s, cron: %s)", ingestTask.Type(), entryID, cfg.IngestCron)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Queues: map[string]int{
				"default": 1,
			},
			Concurrency: 1,
		},
	)

	taskProcessor, err := tasks.NewTaskProcessor(conn, cfg, l)
	if err != nil {
		log.Fatalf("Failed to create task processor: %v", err)
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(
		tasks.TypeTaskIngestPayroll,
		taskProcessor.HandleIngestPayrollTask,
	)

	go func() {
		log.Println("Starting Asynq scheduler...")
		if err := scheduler.Run(); err != nil {
			log.Fatalf("Could not run Asynq scheduler: %v", err)
		}
	}()

	go func() {
		log.Println("Starting Asynq worker server...")
		if err := srv.Run(mux); err != nil {
			log.Fatalf("Could not run Asynq worker server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("Shutdown signal received, shutting down gracefully...")

	scheduler.Shutdown()
	log.Println("Asynq scheduler shut down.")

	srv.Shutdown()
	log.Println("Asynq worker server shut down.")

	log.Println("Worker process shut down complete.")
}
