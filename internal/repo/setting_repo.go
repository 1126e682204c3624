// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for Settings and
// their append-only revision history.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// GetSetting fetches the setting stored under key, or ErrNotFound.
func GetSetting(ctx context.Context, db *gorm.DB, key string) (*domain.Setting, error) {
	var s domain.Setting
	if err := db.WithContext(ctx).First(&s, "setting_key = ?", key).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertSetting inserts s or overwrites the value, updated_at and
// updated_by of the existing row with the same key.
func UpsertSetting(ctx context.Context, db *gorm.DB, s *domain.Setting) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at", "updated_by"}),
	}).Create(s).Error
}

// AppendSettingRevision records the next version of key. It must run in the
// same transaction as the matching UpsertSetting; the (key, version) unique
// index rejects a concurrent writer that computed the same version.
func AppendSettingRevision(ctx context.Context, db *gorm.DB, key, value string, at time.Time, by *string) (*domain.SettingRevision, error) {
	var last int
	if err := db.WithContext(ctx).Model(&domain.SettingRevision{}).
		Select("COALESCE(MAX(version), 0)").
		Where("setting_key = ?", key).
		Scan(&last).Error; err != nil {
		return nil, err
	}
	rev := &domain.SettingRevision{
		ID:        uuid.NewString(),
		Key:       key,
		Version:   last + 1,
		Value:     value,
		ChangedAt: at,
		ChangedBy: by,
	}
	if err := db.WithContext(ctx).Create(rev).Error; err != nil {
		return nil, err
	}
	return rev, nil
}

// ListSettingRevisions returns the history of key, newest first. A limit
// <= 0 returns every revision.
func ListSettingRevisions(ctx context.Context, db *gorm.DB, key string, limit int) ([]domain.SettingRevision, error) {
	q := db.WithContext(ctx).Where("setting_key = ?", key).Order("version DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.SettingRevision
	err := q.Find(&out).Error
	return out, err
}
