// Package services – RequestService
//
// This file implements the NG-day request lifecycle. A worker submits a
// request for a date in the month following the current one, before the
// monthly deadline day; an admin then approves or rejects it exactly once.
//
//	pending ──approve──▶ approved
//	   └─────reject────▶ rejected
//
// Approved and rejected are terminal. Both the duplicate check on creation
// and the single-transition rule are enforced by the database (unique index
// and a conditional UPDATE) rather than by the read that precedes them.
//
// Observability: all public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
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

// RequestService validates and persists NG-day requests.
type RequestService struct {
	DB        *gorm.DB
	Deadlines DeadlineReader
	// Notifier is optional; when nil no chat messages are sent.
	Notifier Notifier
	// Now overrides the clock used for created_at/processed_at in tests.
	Now func() time.Time
}

// RequestQuery filters List. Zero values mean "any".
type RequestQuery struct {
	Status     domain.RequestStatus
	WorkerName string
	// Month (1-12) restricts to one month. Year defaults to the year of
	// Today when only Month is given; Year alone restricts to that year.
	Year  int
	Month int
	// Date restricts to a single request date.
	Date domain.Date
	// Today anchors the Year default; zero means the current UTC date.
	Today domain.Date
}

// Create submits an NG-day request for workerID on requestDate, judged
// against currentDate.
//
// Checks, in order:
//   - MissingField for an empty worker id or a zero request date.
//   - ResourceNotFound when workerID is not a worker.
//   - DeadlineExceeded when currentDate's day is after the deadline day.
//   - NotNextMonth unless requestDate lies in the month after currentDate.
//   - DuplicateRequest when the worker already has a request on that date
//     (including a concurrent insert caught by the unique index).
func (s *RequestService) Create(ctx context.Context, workerID string, requestDate, currentDate domain.Date) (*domain.Request, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("worker.id", workerID),
			attribute.String("request.date", requestDate.String()),
			attribute.String("current.date", currentDate.String()),
		))
	defer span.End()

	if strings.TrimSpace(workerID) == "" {
		return nil, MissingField("worker_id")
	}
	if requestDate.IsZero() {
		return nil, MissingField("request_date")
	}
	if currentDate.IsZero() {
		currentDate = domain.DateOf(nowFn(s.Now))
	}

	worker, err := lookupUser(ctx, s.DB, workerID, domain.RoleWorker)
	if err != nil {
		return nil, err
	}

	deadline := s.Deadlines.DeadlineDay(ctx)
	if currentDate.Day() > deadline {
		return nil, DeadlineExceeded(deadline, currentDate)
	}
	if requestDate.YearMonth() != currentDate.YearMonth().Next() {
		return nil, NotNextMonth(requestDate, currentDate)
	}

	exists, err := repo.RequestExists(ctx, s.DB, workerID, requestDate)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if exists {
		return nil, DuplicateRequest(worker.Name, requestDate)
	}

	req := &domain.Request{
		WorkerID:    workerID,
		RequestDate: requestDate,
		CreatedAt:   nowFn(s.Now),
	}
	if err := repo.CreateRequest(ctx, s.DB, req); err != nil {
		if repo.IsDuplicate(err) {
			return nil, DuplicateRequest(worker.Name, requestDate)
		}
		span.RecordError(err)
		return nil, err
	}
	req.Worker = *worker
	requestsCreated.Inc()

	log.Info().
		Str("request_id", req.ID).
		Str("worker_id", workerID).
		Str("request_date", requestDate.String()).
		Msg("ng-day request created")

	if s.Notifier != nil {
		if to := worker.ChatID(); to != "" {
			s.Notifier.RequestReceived(ctx, to, requestDate)
		}
	}
	return req, nil
}

// Approve marks a pending request approved on behalf of adminID.
func (s *RequestService) Approve(ctx context.Context, requestID, adminID string) (*domain.Request, error) {
	return s.process(ctx, "Approve", "approve", requestID, adminID, domain.StatusApproved)
}

// Reject marks a pending request rejected on behalf of adminID.
func (s *RequestService) Reject(ctx context.Context, requestID, adminID string) (*domain.Request, error) {
	return s.process(ctx, "Reject", "reject", requestID, adminID, domain.StatusRejected)
}

// process applies the pending → to transition.
//
// Errors:
//   - MissingField for empty ids.
//   - ResourceNotFound when the admin or the request does not resolve.
//   - InvalidStatusTransition when the request is no longer pending,
//     including when a concurrent call processed it first.
func (s *RequestService) process(ctx context.Context, op, action, requestID, adminID string, to domain.RequestStatus) (*domain.Request, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, op,
		trace.WithAttributes(attribute.String("request.id", requestID), attribute.String("admin.id", adminID)))
	defer span.End()

	if strings.TrimSpace(requestID) == "" {
		return nil, MissingField("request_id")
	}
	if strings.TrimSpace(adminID) == "" {
		return nil, MissingField("admin_id")
	}

	var out *domain.Request
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lookupUser(ctx, tx, adminID, domain.RoleAdmin); err != nil {
			return err
		}
		req, err := repo.GetRequest(ctx, tx, requestID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ResourceNotFound("request", requestID)
			}
			return err
		}
		if req.Status != domain.StatusPending {
			return InvalidStatusTransition(req.Status, action)
		}

		ok, err := repo.TransitionRequest(ctx, tx, requestID, to, adminID, nowFn(s.Now))
		if err != nil {
			return err
		}
		if !ok {
			cur, err := repo.GetRequest(ctx, tx, requestID)
			if err != nil {
				return err
			}
			return InvalidStatusTransition(cur.Status, action)
		}

		out, err = repo.GetRequest(ctx, tx, requestID)
		return err
	})
	if err != nil {
		if _, ok := AsValidation(err); !ok {
			span.RecordError(err)
		}
		return nil, err
	}
	requestTransitions.WithLabelValues(string(to)).Inc()

	log.Info().
		Str("request_id", requestID).
		Str("admin_id", adminID).
		Str("status", string(to)).
		Msg("ng-day request processed")

	// Notify after commit; delivery problems never undo the decision.
	if s.Notifier != nil {
		if chat := out.Worker.ChatID(); chat != "" {
			if to == domain.StatusApproved {
				s.Notifier.RequestApproved(ctx, chat, out.RequestDate)
			} else {
				s.Notifier.RequestRejected(ctx, chat, out.RequestDate)
			}
		}
	}
	return out, nil
}

// List returns requests matching q, pending first and then by request date
// descending.
//
// Errors:
//   - InvalidRange when Month is outside 1..12.
func (s *RequestService) List(ctx context.Context, q RequestQuery) ([]domain.Request, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("filter.status", string(q.Status)),
			attribute.Int("filter.year", q.Year),
			attribute.Int("filter.month", q.Month),
		))
	defer span.End()

	f := repo.RequestFilter{
		Status:  q.Status,
		NameKey: domain.NormalizeName(q.WorkerName),
	}
	from, to, err := s.monthRange(q)
	if err != nil {
		return nil, err
	}
	f.From, f.To = from, to
	if !q.Date.IsZero() {
		f.From, f.To = maxDate(f.From, q.Date), minDate(f.To, q.Date)
	}
	return repo.ListRequests(ctx, s.DB, f)
}

// ListByWorker returns one worker's requests, newest date first, optionally
// restricted to a status.
func (s *RequestService) ListByWorker(ctx context.Context, workerID string, status domain.RequestStatus) ([]domain.Request, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "ListByWorker", trace.WithAttributes(attribute.String("worker.id", workerID)))
	defer span.End()

	if strings.TrimSpace(workerID) == "" {
		return nil, MissingField("worker_id")
	}
	if _, err := lookupUser(ctx, s.DB, workerID, domain.RoleWorker); err != nil {
		return nil, err
	}
	return repo.ListRequestsByWorker(ctx, s.DB, workerID, status)
}

// Stats counts the requests dated in ym per status.
func (s *RequestService) Stats(ctx context.Context, ym domain.YearMonth) (repo.RequestCounts, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Stats", trace.WithAttributes(attribute.String("month", ym.String())))
	defer span.End()

	if !ym.Valid() {
		return repo.RequestCounts{}, InvalidRange("month", int(ym.Month), 1, 12)
	}
	return repo.CountRequestsByStatus(ctx, s.DB, ym.FirstDay(), ym.LastDay())
}

func (s *RequestService) monthRange(q RequestQuery) (domain.Date, domain.Date, error) {
	if q.Month == 0 && q.Year == 0 {
		return domain.Date{}, domain.Date{}, nil
	}
	if q.Month == 0 {
		return domain.NewDate(q.Year, time.January, 1), domain.NewDate(q.Year, time.December, 31), nil
	}
	if q.Month < 1 || q.Month > 12 {
		return domain.Date{}, domain.Date{}, InvalidRange("month", q.Month, 1, 12)
	}
	year := q.Year
	if year == 0 {
		today := q.Today
		if today.IsZero() {
			today = domain.DateOf(nowFn(s.Now))
		}
		year = today.Year()
	}
	ym := domain.YearMonth{Year: year, Month: time.Month(q.Month)}
	return ym.FirstDay(), ym.LastDay(), nil
}

// lookupUser resolves id to a user with the given role, reporting any
// mismatch as ResourceNotFound for that role.
func lookupUser(ctx context.Context, db *gorm.DB, id string, role domain.Role) (*domain.User, error) {
	u, err := repo.GetUser(ctx, db, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ResourceNotFound(string(role), id)
		}
		return nil, err
	}
	if u.Role != role {
		return nil, ResourceNotFound(string(role), id)
	}
	return u, nil
}

func maxDate(a, b domain.Date) domain.Date {
	if a.IsZero() || b.After(a) {
		return b
	}
	return a
}

func minDate(a, b domain.Date) domain.Date {
	if a.IsZero() || b.Before(a) {
		return b
	}
	return a
}
