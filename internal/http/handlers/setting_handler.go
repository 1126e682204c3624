package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
	"github.com/tbourn/ngday-shift-backend/internal/services"
)

// DeadlineResponse is the body of GET|PUT /settings/deadline.
type DeadlineResponse struct {
	DeadlineDay int `json:"deadline_day"`
}

// SetDeadlineRequest is the JSON payload for PUT /settings/deadline.
type SetDeadlineRequest struct {
	DeadlineDay *int `json:"deadline_day"`
}

// GetDeadline returns the effective deadline day.
func (h *Handlers) GetDeadline(c *gin.Context) {
	ok(c, http.StatusOK, DeadlineResponse{DeadlineDay: h.deadlines.DeadlineDay(c.Request.Context())})
}

// SetDeadline stores a new deadline day as the X-Admin-ID admin.
func (h *Handlers) SetDeadline(c *gin.Context) {
	var req SetDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.DeadlineDay == nil {
		failErr(c, services.MissingField("deadline_day"))
		return
	}
	st, err := h.deadlines.SetDeadlineDay(c.Request.Context(), *req.DeadlineDay, adminID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	day, err := strconv.Atoi(st.Value)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, DeadlineResponse{DeadlineDay: day})
}

// DeadlineHistory returns past deadline values newest first (?limit).
func (h *Handlers) DeadlineHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	revs, err := h.deadlines.History(c.Request.Context(), limit)
	if err != nil {
		failErr(c, err)
		return
	}
	if revs == nil {
		revs = []domain.SettingRevision{}
	}
	ok(c, http.StatusOK, revs)
}
