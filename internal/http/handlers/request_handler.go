package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
	"github.com/tbourn/ngday-shift-backend/internal/services"
)

// CreateRequestRequest is the JSON payload for POST /requests. Dates are
// "YYYY-MM-DD"; Today defaults to the current day in the configured zone.
type CreateRequestRequest struct {
	WorkerID    string `json:"worker_id"`
	RequestDate string `json:"request_date"`
	Today       string `json:"today,omitempty"`
}

// CreateRequest submits an NG-day request on behalf of a worker.
func (h *Handlers) CreateRequest(c *gin.Context) {
	var req CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	var reqDate domain.Date
	if s := strings.TrimSpace(req.RequestDate); s != "" {
		d, err := domain.ParseDate(s)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request_date must be YYYY-MM-DD")
			return
		}
		reqDate = d
	}
	today, err := h.dateOrToday(req.Today)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "today must be YYYY-MM-DD")
		return
	}

	r, err := h.requests.Create(c.Request.Context(), strings.TrimSpace(req.WorkerID), reqDate, today)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, r)
}

// ListRequests returns requests filtered by ?status, ?worker_name, ?year,
// ?month and ?date, pending first.
func (h *Handlers) ListRequests(c *gin.Context) {
	status, good := statusQuery(c)
	if !good {
		return
	}
	q := services.RequestQuery{
		Status:     status,
		WorkerName: c.Query("worker_name"),
		Today:      h.today(),
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"year", &q.Year}, {"month", &q.Month}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, p.name+" must be an integer")
			return
		}
		*p.dst = n
	}
	if raw := c.Query("date"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
			return
		}
		q.Date = d
	}

	rs, err := h.requests.List(c.Request.Context(), q)
	if err != nil {
		failErr(c, err)
		return
	}
	if rs == nil {
		rs = []domain.Request{}
	}
	ok(c, http.StatusOK, rs)
}

// ApproveRequest approves a pending request as the X-Admin-ID admin.
func (h *Handlers) ApproveRequest(c *gin.Context) {
	r, err := h.requests.Approve(c.Request.Context(), c.Param("id"), adminID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// RejectRequest rejects a pending request as the X-Admin-ID admin.
func (h *Handlers) RejectRequest(c *gin.Context) {
	r, err := h.requests.Reject(c.Request.Context(), c.Param("id"), adminID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// RequestStatsResponse is the body of GET /requests/stats.
type RequestStatsResponse struct {
	Month    string `json:"month"`
	Pending  int64  `json:"pending"`
	Approved int64  `json:"approved"`
	Rejected int64  `json:"rejected"`
	Total    int64  `json:"total"`
}

// RequestStats counts the month's requests per status.
func (h *Handlers) RequestStats(c *gin.Context) {
	ym, good := h.monthQuery(c)
	if !good {
		return
	}
	counts, err := h.requests.Stats(c.Request.Context(), ym)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, RequestStatsResponse{
		Month:    ym.String(),
		Pending:  counts.Pending,
		Approved: counts.Approved,
		Rejected: counts.Rejected,
		Total:    counts.Total(),
	})
}
