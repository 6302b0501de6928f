package database

import (
	"fmt"
	"time"

	"yoga-studio/internal/domain/billing"
	"yoga-studio/internal/domain/classes"
	"yoga-studio/internal/domain/community"
	"yoga-studio/internal/domain/content"
	"yoga-studio/internal/domain/goals"
	"yoga-studio/internal/domain/messages"
	"yoga-studio/internal/domain/plans"
	"yoga-studio/internal/domain/subscriptions"
	"yoga-studio/internal/domain/users"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table the API owns, in migration order.
func Models() []any {
	return []any{
		// core
		&users.User{},
		&users.VerificationToken{},
		&plans.SubscriptionPlan{},
		&subscriptions.Subscription{},

		// catalog
		&classes.Class{},
		&classes.Enrollment{},
		&billing.Payment{},

		// member resources
		&content.Content{},
		&content.Interaction{},
		&goals.Goal{},
		&messages.Message{},
		&community.Post{},
	}
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database.Open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database.Open: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		return nil, fmt.Errorf("database.Open: enable pgcrypto: %w", err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("database.Open: migrate: %w", err)
	}

	log.Info("Connected and migrated successfully")
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Warn("Failed to close database")
	}
}
