package backend

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB connects to PostgreSQL when dsn looks like a PostgreSQL DSN and to
// a SQLite file otherwise, then migrates the schema.
func OpenDB(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return open(postgres.Open(dsn), 0)
	}
	return open(sqlite.Open(dsn), 0)
}

// OpenTestDB returns a migrated in-memory SQLite database. It is limited to
// one connection because every new connection would get its own memory.
func OpenTestDB() (*gorm.DB, error) {
	return open(sqlite.Open(":memory:"), 1)
}

func open(dialector gorm.Dialector, maxConns int) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(maxConns)
	}
	if err := db.AutoMigrate(models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}
