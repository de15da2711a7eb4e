package migrations

import (
	"fmt"
	"time"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/analytics"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/preference"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/infrastructure/persistence/postgres/connection"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrationRecord tracks the migration history
type MigrationRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"not null;unique"`
	Version   int       `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for migration records
func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *connection.Database, logger *zap.Logger) error {
	logger.Info("Starting automatic database migration...")

	// Enable UUID extension for PostgreSQL
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		logger.Error("Failed to create UUID extension", zap.Error(err))
		return fmt.Errorf("failed to create UUID extension: %v", err)
	}

	// Create migrations table if it doesn't exist
	if err := db.AutoMigrate(&MigrationRecord{}); err != nil {
		logger.Error("Failed to create migrations table", zap.Error(err))
		return fmt.Errorf("failed to create migrations table: %v", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var lastVersion int
		if err := tx.Model(&MigrationRecord{}).Select("COALESCE(MAX(version), 0)").Scan(&lastVersion).Error; err != nil {
			return fmt.Errorf("failed to get last version: %v", err)
		}

		// Models in migration order. The session document itself lives in
		// Redis and never touches Postgres.
		models := []struct {
			name  string
			model interface{}
		}{
			{"preferences", &preference.Preference{}},
			{"conversation_events", &analytics.ConversationEvent{}},
			{"daily_metrics", &analytics.DailyMetric{}},
		}

		for i, m := range models {
			version := lastVersion + i + 1

			var count int64
			if err := tx.Model(&MigrationRecord{}).Where("name = ?", m.name).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check migration %s: %v", m.name, err)
			}

			if err := tx.AutoMigrate(m.model); err != nil {
				logger.Error("Migration failed", zap.String("model", m.name), zap.Error(err))
				return fmt.Errorf("failed to migrate %s: %v", m.name, err)
			}

			if count == 0 {
				record := MigrationRecord{
					Name:      m.name,
					Version:   version,
					AppliedAt: time.Now().UTC(),
				}
				if err := tx.Create(&record).Error; err != nil {
					return fmt.Errorf("failed to record migration %s: %v", m.name, err)
				}
			}

			logger.Info("Migrated model", zap.String("model", m.name))
		}

		logger.Info("Database migration completed")
		return nil
	})
}
