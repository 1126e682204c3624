package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
	"github.com/tbourn/ngday-shift-backend/internal/services"
)

func Test_fail_500_LogsAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	// simulate RequestID + request-scoped logger
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-500")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) {
		failErr(c, errors.New("database is locked"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "rid-500" || resp.Code != ErrCodeInternal || resp.Message != "internal server error" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), "database is locked") {
		t.Fatalf("expected error log with cause, got: %s", buf.String())
	}
}

func Test_Fail_404_And_ok(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-404")
		c.Next()
	})
	r.GET("/missing", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "nope") })
	r.GET("/ok", func(c *gin.Context) { ok(c, http.StatusCreated, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	er := wantError(t, w, http.StatusNotFound, ErrCodeNotFound)
	if er.RequestID != "rid-404" || er.Message != "nope" || er.Details != nil {
		t.Fatalf("unexpected 404 body: %+v", er)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusCreated || strings.TrimSpace(w.Body.String()) != `{"ok":true}` {
		t.Fatalf("ok = %d %s", w.Code, w.Body.String())
	}
}

func Test_classify(t *testing.T) {
	day := domain.MustParseDate("2025-02-15")
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.MissingField("worker_id"), http.StatusBadRequest, "MISSING_FIELD"},
		{services.InvalidRange("deadline_day", 0, 1, 31), http.StatusBadRequest, "INVALID_RANGE"},
		{services.ResourceNotFound("worker", "w1"), http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{services.DuplicateRequest("Taro", day), http.StatusConflict, "DUPLICATE_REQUEST"},
		{services.InvalidStatusTransition(domain.StatusApproved, "approve"), http.StatusConflict, "INVALID_STATUS_TRANSITION"},
		{services.DeadlineExceeded(10, day), http.StatusUnprocessableEntity, "DEADLINE_EXCEEDED"},
		{services.NotNextMonth(day, day), http.StatusUnprocessableEntity, "NOT_NEXT_MONTH"},
		{fmt.Errorf("create: %w", services.MissingField("name")), http.StatusBadRequest, "MISSING_FIELD"},
		{services.ErrLineIDTaken, http.StatusConflict, ErrCodeConflict},
		{errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		status, code, msg, _ := classify(tc.err)
		if status != tc.status || code != tc.code {
			t.Errorf("classify(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
		}
		if status == http.StatusInternalServerError && msg != internalMessage {
			t.Errorf("internal message leaked: %q", msg)
		}
	}
}
