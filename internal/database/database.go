package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"coinladder/internal/models"
)

// New opens the sqlite database and migrates the schema.
func New(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates the tables for all persisted records. The
// transaction ledger is append-only so there is no destructive reset here;
// holdings are projections and survive only as the latest replay result.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Transaction{},
		&models.Holding{},
		&models.LadderStep{},
		&models.ForecastSnapshot{},
		&models.AlertEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}
