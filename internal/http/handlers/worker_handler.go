package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// RegisterWorkerRequest is the JSON payload for POST /workers.
type RegisterWorkerRequest struct {
	LineID string `json:"line_id"`
	Name   string `json:"name"`
}

// RegisterWorker returns the worker linked to line_id, creating it on first
// contact. It answers 201 for a new worker and 200 for an existing one.
func (h *Handlers) RegisterWorker(c *gin.Context) {
	var req RegisterWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, created, err := h.users.GetOrCreateWorker(c.Request.Context(), strings.TrimSpace(req.LineID), strings.TrimSpace(req.Name))
	if err != nil {
		failErr(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, u)
}

// ListWorkers returns every worker ordered by name.
func (h *Handlers) ListWorkers(c *gin.Context) {
	ws, err := h.users.ListWorkers(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	if ws == nil {
		ws = []domain.User{}
	}
	ok(c, http.StatusOK, ws)
}

// GetWorker returns one user by id.
func (h *Handlers) GetWorker(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// ListWorkerRequests returns one worker's requests, optionally filtered by
// ?status.
func (h *Handlers) ListWorkerRequests(c *gin.Context) {
	status, good := statusQuery(c)
	if !good {
		return
	}
	rs, err := h.requests.ListByWorker(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		failErr(c, err)
		return
	}
	if rs == nil {
		rs = []domain.Request{}
	}
	ok(c, http.StatusOK, rs)
}

// statusQuery parses the optional ?status filter in any casing.
func statusQuery(c *gin.Context) (domain.RequestStatus, bool) {
	raw := c.Query("status")
	if strings.TrimSpace(raw) == "" {
		return "", true
	}
	st, err := domain.ParseRequestStatus(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return "", false
	}
	return st, true
}
