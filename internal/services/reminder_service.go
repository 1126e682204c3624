// Package services – ReminderService
//
// This file implements the deadline reminder batch. On the configured
// offsets before the monthly deadline (7, 3 and 1 days by default) each
// worker without any request for the following month receives a reminder.
// A reminder_logs row is written only after a successful delivery, so a row
// is evidence of a delivered reminder rather than of an attempt.
package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
	"github.com/tbourn/ngday-shift-backend/internal/repo"
)

// DefaultReminderOffsets are the days-before-deadline that trigger reminders.
var DefaultReminderOffsets = []int{7, 3, 1}

// ErrNoNotifier is returned by SendReminders when no Notifier is configured.
var ErrNoNotifier = errors.New("reminder service has no notifier")

// ReminderService computes reminder days and sends the reminder batch.
type ReminderService struct {
	DB        *gorm.DB
	Deadlines DeadlineReader
	Notifier  Notifier
	// DaysBefore overrides DefaultReminderOffsets when non-empty.
	DaysBefore []int
	Now        func() time.Time

	// mu serializes SendReminders batches within the process.
	mu sync.Mutex
}

func (s *ReminderService) offsets() []int {
	if len(s.DaysBefore) > 0 {
		return s.DaysBefore
	}
	return DefaultReminderOffsets
}

// DeadlineDate returns the effective deadline in current's month. A deadline
// day past the end of the month falls on the month's last day.
func (s *ReminderService) DeadlineDate(ctx context.Context, current domain.Date) domain.Date {
	day := s.Deadlines.DeadlineDay(ctx)
	ym := current.YearMonth()
	if last := ym.LastDay(); day > last.Day() {
		return last
	}
	return domain.NewDate(ym.Year, ym.Month, day)
}

// DaysUntilDeadline returns the days from current to this month's deadline;
// negative once the deadline has passed.
func (s *ReminderService) DaysUntilDeadline(ctx context.Context, current domain.Date) int {
	return current.DaysUntil(s.DeadlineDate(ctx, current))
}

// ShouldSendReminder reports whether current is one of the reminder days,
// together with the computed days until the deadline.
func (s *ReminderService) ShouldSendReminder(ctx context.Context, current domain.Date) (bool, int) {
	days := s.DaysUntilDeadline(ctx, current)
	for _, o := range s.offsets() {
		if o == days {
			return true, days
		}
	}
	return false, days
}

// TargetMonth returns the month reminders sent on current refer to.
func (s *ReminderService) TargetMonth(current domain.Date) domain.YearMonth {
	return current.YearMonth().Next()
}

// WorkersWithoutRequests returns the workers with no request of any status
// dated in target.
func (s *ReminderService) WorkersWithoutRequests(ctx context.Context, target domain.YearMonth) ([]domain.User, error) {
	if !target.Valid() {
		return nil, InvalidRange("month", int(target.Month), 1, 12)
	}
	return repo.ListWorkersWithoutRequests(ctx, s.DB, target.FirstDay(), target.LastDay())
}

// SendReminders runs the reminder batch for current and returns the number
// of reminders delivered. Outside the reminder days it does nothing.
// Concurrent calls within one process run one after the other.
func (s *ReminderService) SendReminders(ctx context.Context, current domain.Date) (int, error) {
	tr := otel.Tracer("services/ReminderService")
	ctx, span := tr.Start(ctx, "SendReminders", trace.WithAttributes(attribute.String("current.date", current.String())))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if current.IsZero() {
		return 0, MissingField("current_date")
	}
	send, days := s.ShouldSendReminder(ctx, current)
	span.SetAttributes(attribute.Int("days.until_deadline", days), attribute.Bool("reminder.day", send))
	if !send {
		log.Debug().Str("date", current.String()).Int("days_until_deadline", days).Msg("not a reminder day")
		return 0, nil
	}
	if s.Notifier == nil {
		return 0, ErrNoNotifier
	}

	target := s.TargetMonth(current)
	workers, err := s.WorkersWithoutRequests(ctx, target)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	deadline := s.Deadlines.DeadlineDay(ctx)

	sent := 0
	for _, w := range workers {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		to := w.ChatID()
		if to == "" {
			log.Warn().Str("worker_id", w.ID).Msg("worker has no chat id; reminder skipped")
			continue
		}
		if !s.Notifier.DeadlineReminder(ctx, to, target, deadline, days) {
			log.Warn().Str("worker_id", w.ID).Str("target", target.String()).Msg("reminder not delivered")
			continue
		}
		sent++
		remindersSent.WithLabelValues(strconv.Itoa(days)).Inc()
		if _, err := repo.CreateReminderLog(ctx, s.DB, w.ID, target, days, nowFn(s.Now)); err != nil {
			log.Error().Err(err).Str("worker_id", w.ID).Msg("reminder delivered but not logged")
		}
	}

	log.Info().
		Str("date", current.String()).
		Str("target", target.String()).
		Int("days_until_deadline", days).
		Int("candidates", len(workers)).
		Int("sent", sent).
		Msg("reminder batch finished")
	return sent, nil
}

// Logs returns the delivered reminders for target.
func (s *ReminderService) Logs(ctx context.Context, target domain.YearMonth) ([]domain.ReminderLog, error) {
	return repo.ListReminderLogs(ctx, s.DB, target)
}
