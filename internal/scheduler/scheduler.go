// Package scheduler drives the periodic jobs of the service: the daily
// reminder batch, timed by an RFC 5545 recurrence rule evaluated in the
// configured time zone, and the periodic flush of the notification queue.
//
// Each job is single-flight. A tick that finds the previous run of the same
// job still in progress is skipped, so overlapping batches never happen
// inside one process.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/teambition/rrule-go"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// DefaultRule fires every day at 09:00.
const DefaultRule = "FREQ=DAILY;BYHOUR=9;BYMINUTE=0;BYSECOND=0"

// Reminder runs the reminder batch for a calendar day.
type Reminder interface {
	SendReminders(ctx context.Context, today domain.Date) (int, error)
}

// Flusher re-sends queued notifications.
type Flusher interface {
	ProcessQueue(ctx context.Context) (int, error)
}

// Scheduler owns the job timers.
type Scheduler struct {
	Reminder Reminder
	Flusher  Flusher
	// FlushEvery is the queue flush period; zero disables flushing.
	FlushEvery time.Duration

	loc *time.Location

	ruleMu sync.Mutex
	rule   *rrule.RRule

	remindMu sync.Mutex
	flushMu  sync.Mutex
}

// ParseRule validates a recurrence rule such as DefaultRule.
func ParseRule(expr string) (*rrule.RRule, error) {
	rule, err := rrule.StrToRRule(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder rule %q: %w", expr, err)
	}
	return rule, nil
}

// New returns a Scheduler firing reminders at the occurrences of expr in loc.
func New(expr string, loc *time.Location, r Reminder, f Flusher, flushEvery time.Duration) (*Scheduler, error) {
	rule, err := ParseRule(expr)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{Reminder: r, Flusher: f, FlushEvery: flushEvery, loc: loc, rule: rule}, nil
}

// Next returns the first reminder occurrence strictly after after, or the
// zero time when the rule has no further occurrence. The rule is anchored
// at midnight of after's day in the scheduler's zone, so BYHOUR and
// BYMINUTE are read as local wall-clock times.
func (s *Scheduler) Next(after time.Time) time.Time {
	s.ruleMu.Lock()
	defer s.ruleMu.Unlock()

	local := after.In(s.loc)
	y, m, d := local.Date()
	s.rule.DTStart(time.Date(y, m, d, 0, 0, 0, 0, s.loc))
	return s.rule.After(local, false)
}

// Run blocks until ctx is done, running jobs as they come due.
func (s *Scheduler) Run(ctx context.Context) error {
	var flushC <-chan time.Time
	if s.FlushEvery > 0 && s.Flusher != nil {
		t := time.NewTicker(s.FlushEvery)
		defer t.Stop()
		flushC = t.C
	}

	var remindC <-chan time.Time
	var remindT *time.Timer
	arm := func() {
		if s.Reminder == nil {
			return
		}
		next := s.Next(time.Now())
		if next.IsZero() {
			log.Warn().Msg("reminder rule has no further occurrences")
			remindC = nil
			return
		}
		log.Info().Time("next", next).Msg("next reminder batch scheduled")
		remindT = time.NewTimer(time.Until(next))
		remindC = remindT.C
	}
	arm()
	defer func() {
		if remindT != nil {
			remindT.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case at := <-remindC:
			go s.RunReminders(ctx, at)
			arm()
		case <-flushC:
			go s.RunFlush(ctx)
		}
	}
}

// RunReminders runs the reminder batch for the calendar day of at in the
// scheduler's zone. It reports false when a previous batch was still
// running and this one was skipped.
func (s *Scheduler) RunReminders(ctx context.Context, at time.Time) bool {
	if !s.remindMu.TryLock() {
		log.Warn().Time("at", at).Msg("reminder batch still running; skipping")
		return false
	}
	defer s.remindMu.Unlock()

	today := domain.DateOf(at.In(s.loc))
	sent, err := s.Reminder.SendReminders(ctx, today)
	if err != nil {
		log.Error().Err(err).Str("date", today.String()).Msg("reminder batch failed")
		return true
	}
	log.Info().Str("date", today.String()).Int("sent", sent).Msg("reminder batch done")
	return true
}

// RunFlush processes the notification queue once. It reports false when a
// previous flush was still running.
func (s *Scheduler) RunFlush(ctx context.Context) bool {
	if !s.flushMu.TryLock() {
		log.Debug().Msg("queue flush still running; skipping")
		return false
	}
	defer s.flushMu.Unlock()

	n, err := s.Flusher.ProcessQueue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("queue flush failed")
		return true
	}
	if n > 0 {
		log.Info().Int("sent", n).Msg("queue flush delivered messages")
	}
	return true
}
