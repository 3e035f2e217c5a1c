// internal/database/database.go
package database

import (
	"context"
	"fmt"
	"time"

	"example.com/backstage/services/interactions/config"
	"example.com/backstage/services/interactions/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is an interface for database operations
type DB interface {
	DB() (*gorm.DB, error)
	Ping(ctx context.Context) error
	Close() error
}

// GormDatabase implements the DB interface for GORM
type GormDatabase struct {
	db *gorm.DB
}

// Connect creates the connection pool for the resolved URL. It does not
// ping: an unreachable server surfaces at schema bootstrap or request time.
func Connect(url string, cfg config.DatabaseConfig, log *logrus.Logger) (DB, error) {
	return Open(postgres.Open(url), cfg, log)
}

// Open creates a pool over any gorm dialector
func Open(dialector gorm.Dialector, cfg config.DatabaseConfig, log *logrus.Logger) (DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               newLogger(log, cfg.LogSQL),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB instance: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &GormDatabase{db: db}, nil
}

// DB returns the underlying gorm.DB instance
func (d *GormDatabase) DB() (*gorm.DB, error) {
	return d.db, nil
}

// Ping checks that a pooled connection can reach the server
func (d *GormDatabase) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (d *GormDatabase) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// EnsureSchema creates the service tables and indexes when they are absent.
// Existing tables and rows are left alone.
func EnsureSchema(db DB) error {
	gormDB, err := db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.AutoMigrate(&models.CustomerInteraction{}); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// logAdapter routes gorm's logger through logrus
type logAdapter struct {
	entry *logrus.Entry
}

func (l *logAdapter) Printf(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func newLogger(log *logrus.Logger, logSQL bool) logger.Interface {
	if log == nil {
		log = logrus.New()
	}

	level := logger.Error
	if logSQL {
		level = logger.Info
	}

	return logger.New(
		&logAdapter{entry: log.WithField("component", "gorm")},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
