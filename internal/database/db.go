package database

import (
	"os"
	"path/filepath"

	"github.com/maildeck/core/internal/database/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize creates and returns a database connection. A non-empty dsn
// selects MySQL; otherwise a SQLite database is opened at dbPath.
func Initialize(dsn, dbPath string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var db *gorm.DB
	var err error
	if dsn != "" {
		db, err = gorm.Open(mysql.Open(dsn), gormConfig)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(dbPath), 0755); mkErr != nil {
			return nil, mkErr
		}
		db, err = gorm.Open(sqlite.Open(dbPath), gormConfig)
	}
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// runMigrations runs all database migrations
func runMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Email{},
		&models.Tag{},
		&models.EmailTag{},
		&models.Rule{},
		&models.Attachment{},
		&models.Log{},
	)
}
