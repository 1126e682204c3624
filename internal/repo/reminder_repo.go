package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// CreateReminderLog appends a delivered-reminder row.
func CreateReminderLog(ctx context.Context, db *gorm.DB, workerID string, target domain.YearMonth, daysBefore int, sentAt time.Time) (*domain.ReminderLog, error) {
	row := &domain.ReminderLog{
		ID:                 uuid.NewString(),
		WorkerID:           workerID,
		SentAt:             sentAt,
		DaysBeforeDeadline: daysBefore,
		TargetMonth:        int(target.Month),
		TargetYear:         target.Year,
	}
	if err := db.WithContext(ctx).Omit("Worker").Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// ListReminderLogs returns the reminders sent for target, oldest first.
func ListReminderLogs(ctx context.Context, db *gorm.DB, target domain.YearMonth) ([]domain.ReminderLog, error) {
	var out []domain.ReminderLog
	err := db.WithContext(ctx).
		Where("target_year = ? AND target_month = ?", target.Year, int(target.Month)).
		Order("sent_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
