// Package services – DeadlineService
//
// This file implements the registry of the monthly submission deadline: the
// last day of the month on which NG-day requests for the following month
// are still accepted. The current value lives in a single settings row;
// every change is also appended to an audit trail of revisions.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
	"github.com/tbourn/ngday-shift-backend/internal/repo"
)

const (
	// DeadlineSettingKey is the settings key holding the deadline day.
	DeadlineSettingKey = "deadline_day"
	// DefaultDeadlineDay applies when nothing (valid) is stored.
	DefaultDeadlineDay = 10

	minDeadlineDay = 1
	maxDeadlineDay = 31
)

// DeadlineReader is the read side of the registry used by the request and
// reminder services.
type DeadlineReader interface {
	DeadlineDay(ctx context.Context) int
}

// DeadlineService reads and updates the deadline day.
type DeadlineService struct {
	DB *gorm.DB
	// DefaultDay is returned when no valid value is stored. Zero means
	// DefaultDeadlineDay.
	DefaultDay int
	// Now overrides the clock in tests.
	Now func() time.Time
}

func (s *DeadlineService) defaultDay() int {
	if s.DefaultDay >= minDeadlineDay && s.DefaultDay <= maxDeadlineDay {
		return s.DefaultDay
	}
	return DefaultDeadlineDay
}

// DeadlineDay returns the stored deadline day. It never fails: a missing,
// unparsable or out-of-range value, or a storage error, yields the
// configured default.
func (s *DeadlineService) DeadlineDay(ctx context.Context) int {
	tr := otel.Tracer("services/DeadlineService")
	ctx, span := tr.Start(ctx, "DeadlineDay")
	defer span.End()

	st, err := repo.GetSetting(ctx, s.DB, DeadlineSettingKey)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			span.RecordError(err)
			log.Warn().Err(err).Msg("deadline lookup failed; using default")
		}
		return s.defaultDay()
	}
	day, err := strconv.Atoi(strings.TrimSpace(st.Value))
	if err != nil || day < minDeadlineDay || day > maxDeadlineDay {
		log.Warn().Str("value", st.Value).Msg("stored deadline day is invalid; using default")
		return s.defaultDay()
	}
	span.SetAttributes(attribute.Int("deadline.day", day))
	return day
}

// SetDeadlineDay stores day as the new deadline and appends a revision in
// the same transaction.
//
// Errors:
//   - InvalidRange unless 1 <= day <= 31.
//   - MissingField when adminID is empty.
func (s *DeadlineService) SetDeadlineDay(ctx context.Context, day int, adminID string) (*domain.Setting, error) {
	tr := otel.Tracer("services/DeadlineService")
	ctx, span := tr.Start(ctx, "SetDeadlineDay",
		trace.WithAttributes(attribute.Int("deadline.day", day), attribute.String("admin.id", adminID)))
	defer span.End()

	if day < minDeadlineDay || day > maxDeadlineDay {
		return nil, InvalidRange("deadline_day", day, minDeadlineDay, maxDeadlineDay)
	}
	if strings.TrimSpace(adminID) == "" {
		return nil, MissingField("admin_id")
	}

	now := nowFn(s.Now)
	st := &domain.Setting{
		Key:       DeadlineSettingKey,
		Value:     strconv.Itoa(day),
		UpdatedAt: now,
		UpdatedBy: &adminID,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpsertSetting(ctx, tx, st); err != nil {
			return err
		}
		_, err := repo.AppendSettingRevision(ctx, tx, DeadlineSettingKey, st.Value, now, &adminID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	log.Info().Int("deadline_day", day).Str("admin_id", adminID).Msg("deadline day updated")
	return st, nil
}

// History returns past deadline values newest first, at most limit entries
// (all when limit <= 0). The first entry always equals the current value.
func (s *DeadlineService) History(ctx context.Context, limit int) ([]domain.SettingRevision, error) {
	tr := otel.Tracer("services/DeadlineService")
	ctx, span := tr.Start(ctx, "History", trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	return repo.ListSettingRevisions(ctx, s.DB, DeadlineSettingKey, limit)
}

func nowFn(f func() time.Time) time.Time {
	if f != nil {
		return f().UTC()
	}
	return time.Now().UTC()
}
