package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// UpdateShiftRequest is the JSON payload for PUT /shifts/:date. The list is
// the complete set of workers for the date; an empty list clears it.
type UpdateShiftRequest struct {
	WorkerIDs []string `json:"worker_ids"`
}

// ListShifts returns the month's assignments (?year&month, default current).
func (h *Handlers) ListShifts(c *gin.Context) {
	ym, good := h.monthQuery(c)
	if !good {
		return
	}
	ss, err := h.shifts.ShiftsForMonth(c.Request.Context(), ym)
	if err != nil {
		failErr(c, err)
		return
	}
	if ss == nil {
		ss = []domain.Shift{}
	}
	ok(c, http.StatusOK, ss)
}

// UpdateShift replaces the assignments of one date and reports NG-day
// conflicts as warnings. Conflicts never block the update.
func (h *Handlers) UpdateShift(c *gin.Context) {
	date, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
		return
	}
	var req UpdateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	res, err := h.shifts.UpdateShift(c.Request.Context(), date, req.WorkerIDs, adminID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// ListNGDays returns the month's approved NG days keyed by date, each with
// the ids of the workers who are unavailable.
func (h *Handlers) ListNGDays(c *gin.Context) {
	ym, good := h.monthQuery(c)
	if !good {
		return
	}
	days, err := h.shifts.ApprovedNGDaysForMonth(c.Request.Context(), ym)
	if err != nil {
		failErr(c, err)
		return
	}
	if days == nil {
		days = map[domain.Date][]string{}
	}
	ok(c, http.StatusOK, days)
}
