package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenPostgres opens a Postgres-backed [Gorm] store and migrates the
// refresh_tokens table. TranslateError is enabled so unique-constraint
// violations surface as [ErrDuplicateID].
//
// OpenPostgres may return an error when input validation, dependency calls, or security checks fail.
// OpenPostgres does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func OpenPostgres(dsn string) (*Gorm, error) {
	return openGorm(postgres.Open(dsn))
}

// OpenSQLite opens a SQLite-backed [Gorm] store and migrates the
// refresh_tokens table. Suitable for single-node deployments and tests.
//
// OpenSQLite may return an error when input validation, dependency calls, or security checks fail.
// OpenSQLite does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func OpenSQLite(dsn string) (*Gorm, error) {
	return openGorm(sqlite.Open(dsn))
}

func openGorm(dialector gorm.Dialector) (*Gorm, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s := NewGorm(db)
	if err := s.AutoMigrate(); err != nil {
		return nil, err
	}
	return s, nil
}
