// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and schema migrations.
package repo

import (
	"context"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate brings the schema up to date. Legacy request rows are
// normalized first so that the status CHECK constraint and the strict
// status scanner never see non-canonical values.
func AutoMigrate(db *gorm.DB) error {
	if db.Migrator().HasTable(&domain.Request{}) {
		n, err := NormalizeRequestStatuses(context.Background(), db)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info().Int64("rows", n).Msg("normalized legacy request statuses")
		}
	}
	return db.AutoMigrate(
		&domain.User{},
		&domain.Request{},
		&domain.Setting{},
		&domain.SettingRevision{},
		&domain.Shift{},
		&domain.ReminderLog{},
		&domain.OutboxMessage{},
	)
}

// NormalizeRequestStatuses rewrites every stored request status to its
// trimmed lowercase spelling and returns the number of rows touched.
func NormalizeRequestStatuses(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).Exec(
		"UPDATE ng_requests SET status = LOWER(TRIM(status)) WHERE status <> LOWER(TRIM(status))",
	)
	return res.RowsAffected, res.Error
}
