package config

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vardhanvasista/fresalyzer/internal/models"
)

// InitDatabase connects to postgres. It refuses other drivers, which are
// served by in-memory repositories instead.
func InitDatabase(cfg *Config) (*gorm.DB, error) {
	if !cfg.UsePostgres() {
		return nil, fmt.Errorf("database driver %q does not use postgres", cfg.Database.Driver)
	}

	log.Printf("🔄 Connecting to postgres at %s:%s/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	dsn := cfg.GetDatabaseDSN()

	logLevel := logger.Silent
	if cfg.Server.Env == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("✅ Database connected successfully")

	if err := db.AutoMigrate(
		&models.Upload{},
		&models.Run{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("✅ Database migration completed (uploads, runs)")

	return db, nil
}
