package main

import (
	"fmt"
	"log"

	"sentinela/internal/config"
	"sentinela/internal/db"
	"sentinela/internal/logger"
	"sentinela/internal/routes"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)

	conn, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("Failed to prepare database: %v", err)
	}

	router := routes.SetupRouter(conn)

	serverAddr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Printf("Starting server on %s", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
