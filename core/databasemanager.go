package core

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gatelog.io/gatelog/config"
	"gatelog.io/gatelog/core/models"
)

// Sentinel errors mapped to HTTP outcomes by the web layer.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// ErrInUse rejects a delete that would orphan active employees.
type ErrInUse struct {
	Entity string
	Count  int64
}

func (e *ErrInUse) Error() string {
	return fmt.Sprintf("%s is referenced by %d active employees", e.Entity, e.Count)
}

type LogLevel int

const (
	LogLevelSilent LogLevel = iota + 1
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

// Open connects to the configured engine, runs migrations and seeds the
// sentinel "unspecified" department/position. The same gorm contract serves
// both backends; nothing above this function knows which engine is active.
func Open(cfg config.Database, level LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormLogLevel := logger.Silent
	switch level {
	case LogLevelError:
		gormLogLevel = logger.Error
	case LogLevelWarn:
		gormLogLevel = logger.Warn
	case LogLevelInfo:
		gormLogLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	if err := seedSentinels(db); err != nil {
		return nil, err
	}

	return db, nil
}

func seedSentinels(db *gorm.DB) error {
	dept := models.Department{Name: models.UnspecifiedName}
	if err := db.Where("name = ?", dept.Name).FirstOrCreate(&dept).Error; err != nil {
		return fmt.Errorf("seed department: %w", err)
	}
	pos := models.Position{Name: models.UnspecifiedName}
	if err := db.Where("name = ?", pos.Name).FirstOrCreate(&pos).Error; err != nil {
		return fmt.Errorf("seed position: %w", err)
	}
	return nil
}
