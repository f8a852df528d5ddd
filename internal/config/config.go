package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPortalBaseURL    = "https://transparencia.al.al.leg.br"
	DefaultSQLitePath       = "sentinela_alagoas.db"
	DefaultHistoryStartYear = 2020
	DefaultFetchWorkers     = 10
	DefaultIngestCron       = "0 6 * * *"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL string // empty means the local SQLite file
	RedisURL    string
	APIPort     string
	LogLevel    string

	PortalBaseURL     string
	Historical        bool // CARGA_HISTORICA=true selects a full backfill
	HistoryStartYear  int
	FetchWorkers      int
	ListTimeout       time.Duration
	DetailTimeout     time.Duration
	RequestsPerSecond float64

	IngestCron string
}

// LoadConfig reads configuration from environment variables (.env file)
func LoadConfig() (*Config, error) {
	// Load .env file. In production, env variables are often set directly.
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, reading from environment")
	}

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		APIPort:     getEnv("API_PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		PortalBaseURL:     strings.TrimRight(getEnv("PORTAL_BASE_URL", DefaultPortalBaseURL), "/"),
		Historical:        getEnv("CARGA_HISTORICA", "") == "true",
		HistoryStartYear:  getEnvInt("HISTORY_START_YEAR", DefaultHistoryStartYear),
		FetchWorkers:      getEnvInt("FETCH_WORKERS", DefaultFetchWorkers),
		ListTimeout:       time.Duration(getEnvInt("LIST_TIMEOUT_SEC", 20)) * time.Second,
		DetailTimeout:     time.Duration(getEnvInt("DETAIL_TIMEOUT_SEC", 15)) * time.Second,
		RequestsPerSecond: getEnvFloat("REQUEST_RPS", 0),

		IngestCron: getEnv("INGEST_CRON", DefaultIngestCron),
	}, nil
}

// Helper function to get env var or return default
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 {
		slog.Warn("invalid number in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}
