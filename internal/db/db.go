package db

import (
	"fmt"
	"strings"

	"sentinela/internal/config"
	"sentinela/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens Postgres for postgres:// DSNs and a SQLite file otherwise.
// An empty DSN uses the default local database file.
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(dialectorFor(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the historico_folha table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.PayrollRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func dialectorFor(dsn string) gorm.Dialector {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn)
	case dsn == "":
		return sqlite.Open(config.DefaultSQLitePath)
	default:
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://"))
	}
}
