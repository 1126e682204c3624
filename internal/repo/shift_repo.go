// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Shift
// model. A worker is assigned to a date at most once (ux_shifts_date_worker).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// ListShifts returns the shifts dated within [from, to] with their workers,
// ordered by date and then assignment order.
func ListShifts(ctx context.Context, db *gorm.DB, from, to domain.Date) ([]domain.Shift, error) {
	var out []domain.Shift
	err := db.WithContext(ctx).Preload("Worker").
		Where("shift_date >= ? AND shift_date <= ?", from, to).
		Order("shift_date ASC, created_at ASC, worker_id ASC").
		Find(&out).Error
	return out, err
}

// AssignedWorkerIDs returns the ids of workers assigned on d.
func AssignedWorkerIDs(ctx context.Context, db *gorm.DB, d domain.Date) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).Model(&domain.Shift{}).
		Where("shift_date = ?", d).
		Order("worker_id ASC").
		Pluck("worker_id", &ids).Error
	return ids, err
}

// CreateShifts inserts one shift per worker on d.
func CreateShifts(ctx context.Context, db *gorm.DB, d domain.Date, workerIDs []string, at time.Time, by string) error {
	if len(workerIDs) == 0 {
		return nil
	}
	rows := make([]domain.Shift, 0, len(workerIDs))
	for _, w := range workerIDs {
		rows = append(rows, domain.Shift{
			ID:        uuid.NewString(),
			ShiftDate: d,
			WorkerID:  w,
			CreatedAt: at,
			UpdatedAt: at,
			UpdatedBy: by,
		})
	}
	return db.WithContext(ctx).Omit("Worker").Create(&rows).Error
}

// DeleteShifts removes the given workers' shifts on d.
func DeleteShifts(ctx context.Context, db *gorm.DB, d domain.Date, workerIDs []string) error {
	if len(workerIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Where("shift_date = ? AND worker_id IN ?", d, workerIDs).
		Delete(&domain.Shift{}).Error
}

// TouchShifts stamps updated_at/updated_by on every shift dated d.
func TouchShifts(ctx context.Context, db *gorm.DB, d domain.Date, at time.Time, by string) error {
	return db.WithContext(ctx).Model(&domain.Shift{}).
		Where("shift_date = ?", d).
		Updates(map[string]any{"updated_at": at, "updated_by": by}).Error
}
