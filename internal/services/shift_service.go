// Package services – ShiftService
//
// This file implements shift assignment with NG-day conflict checking. An
// admin replaces the set of workers assigned to a date; workers holding an
// approved NG-day request for that date are reported as warnings. Warnings
// never block the assignment.
package services

import (
	"context"
	"fmt"
	"sort"
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

// ShiftService assigns workers to dates.
type ShiftService struct {
	DB *gorm.DB
	// Notifier is optional; newly added workers are told about their shift.
	Notifier Notifier
	Now      func() time.Time
}

// ShiftUpdate is the outcome of UpdateShift.
type ShiftUpdate struct {
	Date     domain.Date    `json:"date"`
	Shifts   []domain.Shift `json:"shifts"`
	Warnings []string       `json:"warnings"`
	Added    []string       `json:"added"`
	Removed  []string       `json:"removed"`
}

// ApprovedNGDays maps each date in [start, end] to the ids of workers with
// an approved request on it. Dates without approved requests are absent.
//
// Errors:
//   - MissingField for a zero bound.
//   - InvalidRange when start is after end.
func (s *ShiftService) ApprovedNGDays(ctx context.Context, start, end domain.Date) (map[domain.Date][]string, error) {
	tr := otel.Tracer("services/ShiftService")
	ctx, span := tr.Start(ctx, "ApprovedNGDays",
		trace.WithAttributes(attribute.String("start", start.String()), attribute.String("end", end.String())))
	defer span.End()

	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	return s.approvedNGDays(ctx, s.DB, start, end)
}

// ApprovedNGDaysForMonth is ApprovedNGDays over one calendar month.
func (s *ShiftService) ApprovedNGDaysForMonth(ctx context.Context, ym domain.YearMonth) (map[domain.Date][]string, error) {
	if !ym.Valid() {
		return nil, InvalidRange("month", int(ym.Month), 1, 12)
	}
	return s.ApprovedNGDays(ctx, ym.FirstDay(), ym.LastDay())
}

func (s *ShiftService) approvedNGDays(ctx context.Context, db *gorm.DB, start, end domain.Date) (map[domain.Date][]string, error) {
	reqs, err := repo.ListApprovedRequests(ctx, db, start, end)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Date][]string)
	for _, r := range reqs {
		out[r.RequestDate] = append(out[r.RequestDate], r.WorkerID)
	}
	return out, nil
}

// ShiftsBetween returns the shifts dated within [start, end].
func (s *ShiftService) ShiftsBetween(ctx context.Context, start, end domain.Date) ([]domain.Shift, error) {
	tr := otel.Tracer("services/ShiftService")
	ctx, span := tr.Start(ctx, "ShiftsBetween",
		trace.WithAttributes(attribute.String("start", start.String()), attribute.String("end", end.String())))
	defer span.End()

	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	return repo.ListShifts(ctx, s.DB, start, end)
}

// ShiftsForMonth returns the shifts of one calendar month.
func (s *ShiftService) ShiftsForMonth(ctx context.Context, ym domain.YearMonth) ([]domain.Shift, error) {
	if !ym.Valid() {
		return nil, InvalidRange("month", int(ym.Month), 1, 12)
	}
	return s.ShiftsBetween(ctx, ym.FirstDay(), ym.LastDay())
}

// UpdateShift makes workerIDs the exact set of workers assigned on date.
//
// Workers not yet assigned are added, assigned workers not listed are
// removed, and every remaining assignment is stamped with the admin and the
// current time. Each final assignee with an approved NG day on date yields
// one warning. Duplicate ids are ignored; an empty list clears the date.
//
// Errors:
//   - MissingField for a zero date or an empty admin id.
//   - ResourceNotFound when adminID is not an admin or any id is not a worker.
func (s *ShiftService) UpdateShift(ctx context.Context, date domain.Date, workerIDs []string, adminID string) (*ShiftUpdate, error) {
	tr := otel.Tracer("services/ShiftService")
	ctx, span := tr.Start(ctx, "UpdateShift",
		trace.WithAttributes(
			attribute.String("shift.date", date.String()),
			attribute.Int("workers.count", len(workerIDs)),
			attribute.String("admin.id", adminID),
		))
	defer span.End()

	if date.IsZero() {
		return nil, MissingField("shift_date")
	}
	if strings.TrimSpace(adminID) == "" {
		return nil, MissingField("admin_id")
	}
	wanted := dedupe(workerIDs)

	res := &ShiftUpdate{Date: date, Warnings: []string{}, Added: []string{}, Removed: []string{}}
	var workers map[string]domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lookupUser(ctx, tx, adminID, domain.RoleAdmin); err != nil {
			return err
		}
		var err error
		workers, err = repo.GetUsersByIDs(ctx, tx, wanted)
		if err != nil {
			return err
		}
		for _, id := range wanted {
			if u, ok := workers[id]; !ok || u.Role != domain.RoleWorker {
				return ResourceNotFound("worker", id)
			}
		}

		current, err := repo.AssignedWorkerIDs(ctx, tx, date)
		if err != nil {
			return err
		}
		res.Added = difference(wanted, current)
		res.Removed = difference(current, wanted)

		if err := repo.DeleteShifts(ctx, tx, date, res.Removed); err != nil {
			return err
		}
		now := nowFn(s.Now)
		if err := repo.CreateShifts(ctx, tx, date, res.Added, now, adminID); err != nil {
			return err
		}
		if err := repo.TouchShifts(ctx, tx, date, now, adminID); err != nil {
			return err
		}

		ng, err := s.approvedNGDays(ctx, tx, date, date)
		if err != nil {
			return err
		}
		assigned := make(map[string]bool, len(wanted))
		for _, id := range wanted {
			assigned[id] = true
		}
		for _, id := range ng[date] {
			if assigned[id] {
				res.Warnings = append(res.Warnings, ConflictWarning(workers[id].Name, date))
			}
		}

		res.Shifts, err = repo.ListShifts(ctx, tx, date, date)
		return err
	})
	if err != nil {
		if _, ok := AsValidation(err); !ok {
			span.RecordError(err)
		}
		return nil, err
	}
	shiftWarnings.Add(float64(len(res.Warnings)))

	log.Info().
		Str("shift_date", date.String()).
		Str("admin_id", adminID).
		Int("added", len(res.Added)).
		Int("removed", len(res.Removed)).
		Int("warnings", len(res.Warnings)).
		Msg("shift updated")

	if s.Notifier != nil {
		for _, id := range res.Added {
			u := workers[id]
			if to := u.ChatID(); to != "" {
				s.Notifier.ShiftConfirmed(ctx, to, date)
			}
		}
	}
	return res, nil
}

// ConflictWarning is the warning emitted for a worker assigned on one of
// their approved NG days.
func ConflictWarning(workerName string, d domain.Date) string {
	return fmt.Sprintf("Warning: Worker '%s' has an approved NG day on %s", workerName, d)
}

func checkRange(start, end domain.Date) error {
	if start.IsZero() {
		return MissingField("start_date")
	}
	if end.IsZero() {
		return MissingField("end_date")
	}
	if start.After(end) {
		return &ValidationError{
			Code:    CodeInvalidRange,
			Message: fmt.Sprintf("開始日（%s）は終了日（%s）以前の日付を指定してください。", start, end),
			Details: map[string]any{"field_name": "start_date", "value": start.String(), "max_value": end.String()},
		}
	}
	return nil
}

// dedupe drops blanks and repeats, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// difference returns a − b, sorted.
func difference(a, b []string) []string {
	drop := make(map[string]bool, len(b))
	for _, id := range b {
		drop[id] = true
	}
	out := []string{}
	for _, id := range a {
		if !drop[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
