package db

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storepulse/config"
	"storepulse/internal/model"
)

// Init opens the database named by the DSN and runs migrations.
// DSNs starting with "postgres://", "postgresql://" or containing "host=" use
// PostgreSQL; everything else is treated as a SQLite file or URI.
func Init(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, isPostgres := Dialector(cfg.DSN)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if isPostgres {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info("running database migrations", zap.Bool("postgres", isPostgres))
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if isPostgres {
		if err := applyPostgresDDL(db); err != nil {
			log.Warn("failed to apply some postgres DDL, continuing without it", zap.Error(err))
		}
	}

	log.Info("database initialization complete")
	return db, nil
}

// Dialector picks the gorm driver for a DSN.
func Dialector(dsn string) (gorm.Dialector, bool) {
	if strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") {
		return postgres.Open(dsn), true
	}
	return sqlite.Open(dsn), false
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.BusinessHour{},
		&model.StatusObservation{},
		&model.StoreTimezone{},
		&model.ReportJob{},
		&model.ReportEntry{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		// Newest observation per store is looked up once per store per job.
		"CREATE INDEX IF NOT EXISTS idx_observations_store_time_desc ON status_observations (store_id, observed_at DESC);",
		"ALTER TABLE report_jobs DROP CONSTRAINT IF EXISTS report_jobs_status_valid;",
		"ALTER TABLE report_jobs ADD CONSTRAINT report_jobs_status_valid " +
			"CHECK (status IN ('Running', 'Complete', 'Failed'));",
		"ALTER TABLE status_observations DROP CONSTRAINT IF EXISTS status_observations_status_valid;",
		"ALTER TABLE status_observations ADD CONSTRAINT status_observations_status_valid " +
			"CHECK (status IN ('active', 'inactive'));",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
