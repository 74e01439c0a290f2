package db

import (
	"advisory/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Advisor{},
		&models.Client{},
		&models.Plan{},
		&models.Transaction{},
		&models.Notification{},
	)
}
