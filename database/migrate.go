package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"sparkreview_backend/internal/config"
	"sparkreview_backend/internal/models"
)

var gormDB *gorm.DB

// ConnectGorm opens (or reuses) the GORM connection from config.
func ConnectGorm() (*gorm.DB, error) {
	if gormDB != nil {
		return gormDB, nil
	}

	cfg := config.GetConfig()

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	gormDB = db
	return db, nil
}

// AutoMigrate creates or updates every table of the schema.
func AutoMigrate() error {
	db, err := ConnectGorm()
	if err != nil {
		return err
	}

	return MigrateModels(db)
}

// MigrateModels runs the schema migration against the given connection.
// Split out so tests can migrate their own database.
func MigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ReviewRequest{},
		&models.ReviewSlot{},
		&models.SlotApplication{},
		&models.SparksTransaction{},
		&models.Notification{},
	)
}
