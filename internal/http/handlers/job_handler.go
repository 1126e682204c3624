package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// ReminderRunResponse is the body of POST /jobs/reminders.
type ReminderRunResponse struct {
	Date              string `json:"date"`
	TargetMonth       string `json:"target_month"`
	ReminderDay       bool   `json:"reminder_day"`
	DaysUntilDeadline int    `json:"days_until_deadline"`
	Sent              int    `json:"sent"`
}

// RunReminders runs the reminder batch for ?date (default today). Outside
// the reminder days nothing is sent and reminder_day is false.
func (h *Handlers) RunReminders(c *gin.Context) {
	day, err := h.dateOrToday(c.Query("date"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
		return
	}
	ctx := c.Request.Context()
	send, days := h.reminders.ShouldSendReminder(ctx, day)
	sent, err := h.reminders.SendReminders(ctx, day)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ReminderRunResponse{
		Date:              day.String(),
		TargetMonth:       h.reminders.TargetMonth(day).String(),
		ReminderDay:       send,
		DaysUntilDeadline: days,
		Sent:              sent,
	})
}

// ListReminderLogs returns the reminders delivered for ?year&month.
func (h *Handlers) ListReminderLogs(c *gin.Context) {
	ym, good := h.monthQuery(c)
	if !good {
		return
	}
	logs, err := h.reminders.Logs(c.Request.Context(), ym)
	if err != nil {
		failErr(c, err)
		return
	}
	if logs == nil {
		logs = []domain.ReminderLog{}
	}
	ok(c, http.StatusOK, logs)
}

// FlushResponse is the body of POST /jobs/flush-queue.
type FlushResponse struct {
	Delivered int `json:"delivered"`
	Pending   int `json:"pending"`
}

// FlushQueue makes one delivery pass over the postponed notifications.
func (h *Handlers) FlushQueue(c *gin.Context) {
	ctx := c.Request.Context()
	n, err := h.queue.ProcessQueue(ctx)
	if err != nil {
		failErr(c, err)
		return
	}
	pending, err := h.queue.QueueLen(ctx)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, FlushResponse{Delivered: n, Pending: pending})
}
