package database

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"compliance-training/internal/domain/accounts"
	"compliance-training/internal/domain/billing"
	"compliance-training/internal/domain/courses"
	"compliance-training/internal/domain/enrollments"
	"compliance-training/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres. It does not migrate.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(log.New(os.Stdout, "\r\n", log.LstdFlags)),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// Lookups that find nothing are normal here (resolver polling, first team
// creation) and are not logged.
func newGormLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB, log *slog.Logger) error {
	if err := db.AutoMigrate(
		// identity
		&users.User{},
		&accounts.Account{},
		&accounts.Membership{},

		// catalog
		&courses.Course{},

		// purchases
		&billing.SeatGrant{},
		&billing.GrantPayment{},
		&billing.WebhookEvent{},

		// learning
		&enrollments.Enrollment{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	log.Info("database migrated")
	return nil
}
