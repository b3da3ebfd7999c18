package db

import (
	"strings"
	"time"

	elimlog "elim/internal/log"
	"elim/internal/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// 连接池设置
const (
	maxOpenConns    = 50
	maxConnIdleTime = 4 * time.Minute
)

// Open connects to Postgres, or to SQLite when the DSN is a file: URL or a .db path
// (local development).
func Open(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector(dsn), &gorm.Config{
		Logger: elimlog.NewGormLogger(logger),
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database handle")
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxIdleTime(maxConnIdleTime)

	logger.Info("database connection established")
	return gdb, nil
}

func dialector(dsn string) gorm.Dialector {
	if IsSQLite(dsn) {
		return sqlite.Open(dsn)
	}
	return postgres.Open(dsn)
}

func IsSQLite(dsn string) bool {
	return strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db")
}

// Migrate creates or updates the tables the comment service owns.
func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&models.Profile{},
		&models.Post{},
		&models.Comment{},
		&models.PointLog{},
		&models.Notification{},
	)
	return errors.Wrap(err, "migrate database")
}
