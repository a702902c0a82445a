package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/coursepass-backend/internal/platform/envutil"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

// SQLiteService backs local development and tests. SQLite allows a single
// writer, so the pool is pinned to one connection.
type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(logg *logger.Logger) (*SQLiteService, error) {
	return OpenSQLite(logg, envutil.String("SQLITE_PATH", "coursepass.db"))
}

func OpenSQLite(logg *logger.Logger, dsn string) (*SQLiteService, error) {
	serviceLog := logg.With("service", "SQLiteService")

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	serviceLog.Info("connected", "driver", "sqlite", "path", dsn)
	return &SQLiteService{db: db, log: serviceLog}, nil
}

func (s *SQLiteService) DB() *gorm.DB { return s.db }

func (s *SQLiteService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Open picks the driver from DB_DRIVER ("postgres" by default, or "sqlite").
func Open(logg *logger.Logger) (Service, error) {
	switch driver := envutil.String("DB_DRIVER", "postgres"); driver {
	case "postgres":
		return NewPostgresService(logg)
	case "sqlite":
		return NewSQLiteService(logg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}
