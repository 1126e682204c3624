// Admin API handlers.
//
// Handlers are transport-thin: they parse path, query and JSON input, call the
// application services and translate results into HTTP responses. The acting
// admin is identified by the X-Admin-ID header; the calendar day used for
// deadline checks is "today" in the configured time zone unless the caller
// supplies one explicitly.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
	"github.com/tbourn/ngday-shift-backend/internal/http/middleware"
	"github.com/tbourn/ngday-shift-backend/internal/repo"
	"github.com/tbourn/ngday-shift-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// UserService resolves workers by their chat id.
type UserService interface {
	GetOrCreateWorker(ctx context.Context, lineID, name string) (*domain.User, bool, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	ListWorkers(ctx context.Context) ([]domain.User, error)
}

// RequestService manages the NG-day request lifecycle.
type RequestService interface {
	Create(ctx context.Context, workerID string, requestDate, currentDate domain.Date) (*domain.Request, error)
	Approve(ctx context.Context, requestID, adminID string) (*domain.Request, error)
	Reject(ctx context.Context, requestID, adminID string) (*domain.Request, error)
	List(ctx context.Context, q services.RequestQuery) ([]domain.Request, error)
	ListByWorker(ctx context.Context, workerID string, status domain.RequestStatus) ([]domain.Request, error)
	Stats(ctx context.Context, ym domain.YearMonth) (repo.RequestCounts, error)
}

// ShiftService reads and edits shift assignments.
type ShiftService interface {
	ShiftsForMonth(ctx context.Context, ym domain.YearMonth) ([]domain.Shift, error)
	ApprovedNGDaysForMonth(ctx context.Context, ym domain.YearMonth) (map[domain.Date][]string, error)
	UpdateShift(ctx context.Context, date domain.Date, workerIDs []string, adminID string) (*services.ShiftUpdate, error)
}

// DeadlineService reads and edits the monthly submission deadline.
type DeadlineService interface {
	DeadlineDay(ctx context.Context) int
	SetDeadlineDay(ctx context.Context, day int, adminID string) (*domain.Setting, error)
	History(ctx context.Context, limit int) ([]domain.SettingRevision, error)
}

// ReminderService runs the reminder batch on demand.
type ReminderService interface {
	ShouldSendReminder(ctx context.Context, current domain.Date) (bool, int)
	TargetMonth(current domain.Date) domain.YearMonth
	SendReminders(ctx context.Context, current domain.Date) (int, error)
	Logs(ctx context.Context, target domain.YearMonth) ([]domain.ReminderLog, error)
}

// QueueService drains postponed notifications on demand.
type QueueService interface {
	ProcessQueue(ctx context.Context) (int, error)
	QueueLen(ctx context.Context) (int, error)
}

//
// Handler wiring
//

// Deps bundles the services and clock used by Handlers.
type Deps struct {
	Users     UserService
	Requests  RequestService
	Shifts    ShiftService
	Deadlines DeadlineService
	Reminders ReminderService
	Queue     QueueService

	// Location is the time zone "today" is computed in (UTC when nil).
	Location *time.Location
	// Now overrides the wall clock in tests.
	Now func() time.Time
}

// Handlers groups the admin API endpoints.
type Handlers struct {
	users     UserService
	requests  RequestService
	shifts    ShiftService
	deadlines DeadlineService
	reminders ReminderService
	queue     QueueService
	loc       *time.Location
	now       func() time.Time
}

// New constructs Handlers bound to the given services.
func New(d Deps) *Handlers {
	h := &Handlers{
		users:     d.Users,
		requests:  d.Requests,
		shifts:    d.Shifts,
		deadlines: d.Deadlines,
		reminders: d.Reminders,
		queue:     d.Queue,
		loc:       d.Location,
		now:       d.Now,
	}
	if h.loc == nil {
		h.loc = time.UTC
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func adminID(c *gin.Context) string { return middleware.AdminID(c) }

// today returns the current calendar day in the configured zone.
func (h *Handlers) today() domain.Date {
	return domain.DateOf(h.now().In(h.loc))
}

// dateOrToday parses raw as a date, returning today when raw is empty.
func (h *Handlers) dateOrToday(raw string) (domain.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return h.today(), nil
	}
	return domain.ParseDate(strings.TrimSpace(raw))
}

// monthQuery reads ?year&month, defaulting each to today's month.
func (h *Handlers) monthQuery(c *gin.Context) (domain.YearMonth, bool) {
	ym := h.today().YearMonth()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "year must be an integer")
			return ym, false
		}
		ym.Year = y
	}
	if raw := c.Query("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "month must be an integer")
			return ym, false
		}
		ym.Month = time.Month(m)
	}
	if !ym.Valid() {
		failErr(c, services.InvalidRange("month", int(ym.Month), 1, 12))
		return ym, false
	}
	return ym, true
}

// Register mounts the admin API on g.
func (h *Handlers) Register(g gin.IRouter) {
	g.POST("/workers", h.RegisterWorker)
	g.GET("/workers", h.ListWorkers)
	g.GET("/workers/:id", h.GetWorker)
	g.GET("/workers/:id/requests", h.ListWorkerRequests)

	g.POST("/requests", h.CreateRequest)
	g.GET("/requests", h.ListRequests)
	g.GET("/requests/stats", h.RequestStats)
	g.POST("/requests/:id/approve", h.ApproveRequest)
	g.POST("/requests/:id/reject", h.RejectRequest)

	g.GET("/shifts", h.ListShifts)
	g.PUT("/shifts/:date", h.UpdateShift)
	g.GET("/ng-days", h.ListNGDays)

	g.GET("/settings/deadline", h.GetDeadline)
	g.PUT("/settings/deadline", h.SetDeadline)
	g.GET("/settings/deadline/history", h.DeadlineHistory)

	g.GET("/reminders", h.ListReminderLogs)
	g.POST("/jobs/reminders", h.RunReminders)
	g.POST("/jobs/flush-queue", h.FlushQueue)
}
