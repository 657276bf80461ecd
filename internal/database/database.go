package database

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"recallme-go/config"
	"recallme-go/internal/core/models"

	"github.com/glebarez/sqlite" // Pure Go
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlog "gorm.io/gorm/logger"
)

// Open stellt die Datenbankverbindung her und führt die idempotente
// Schema-Migration aus. Ein Migrationsfehler wird protokolliert, bricht die
// Initialisierung aber nicht ab: existieren die Tabellen bereits, bleibt der
// Store benutzbar.
func Open(cfg config.DBConfig) (*gorm.DB, error) {
	// Ensure the directory for the database file exists
	dbDir := filepath.Dir(cfg.File)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		log.Errorf("Failed to create database directory '%s': %v", dbDir, err)
		return nil, err
	}

	// GORM-Logger an die konfigurierte logrus-Instanz binden
	gormConfiguredLogger := gormlog.New(
		log.StandardLogger(),
		gormlog.Config{
			SlowThreshold:             time.Second * 2,
			LogLevel:                  gormlog.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Infof("Connecting to database: %s", cfg.File)
	db, err := gorm.Open(sqlite.Open(cfg.File), &gorm.Config{
		Logger: gormConfiguredLogger,
	})
	if err != nil {
		log.Errorf("Failed to connect to database '%s': %v", cfg.File, err)
		return nil, err
	}

	log.Info("Database connection established.")

	log.Info("Running database migrations...")
	if err := db.AutoMigrate(
		&models.Patient{},
		&models.Person{},
	); err != nil {
		// Nicht fatal: bei bereits vorhandenen Tabellen bleibt der Store nutzbar
		log.Errorf("Database migration failed: %v", err)
	} else {
		log.Info("Database migrations completed.")
	}

	return db, nil
}

// IsRecordNotFound meldet, ob ein GORM-Fehler ein fehlender Datensatz ist.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
