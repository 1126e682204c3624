package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
	"github.com/tbourn/ngday-shift-backend/internal/notify"
	"github.com/tbourn/ngday-shift-backend/internal/services"
)

func TestRegisterWorker_CreatedThenExisting(t *testing.T) {
	e := newEnv(t, "2025-01-05T09:00:00Z")
	first := e.worker(t, "U-taro", "Taro")

	w := e.do(t, http.MethodPost, "/api/workers", map[string]string{"line_id": "U-taro", "name": "Someone"}, false)
	if w.Code != http.StatusOK {
		t.Fatalf("second register = %d %s", w.Code, w.Body.String())
	}
	var again domain.User
	decode(t, w, &again)
	if again.ID != first.ID || again.Name != "Taro" {
		t.Fatalf("expected existing worker, got %+v", again)
	}

	wantError(t, e.do(t, http.MethodPost, "/api/workers", map[string]string{"name": "x"}, false),
		http.StatusBadRequest, string(services.CodeMissingField))
	wantError(t, e.do(t, http.MethodPost, "/api/workers", "{", false),
		http.StatusBadRequest, ErrCodeBadRequest)

	w = e.do(t, http.MethodGet, "/api/workers", nil, false)
	var ws []domain.User
	decode(t, w, &ws)
	if len(ws) != 1 || ws[0].ID != first.ID {
		t.Fatalf("list workers = %+v", ws)
	}
}

func TestCreateRequest_TaxonomyMapping(t *testing.T) {
	e := newEnv(t, "2025-01-05T09:00:00Z")
	taro := e.worker(t, "U-taro", "Taro")

	body := func(date, today string) map[string]string {
		return map[string]string{"worker_id": taro.ID, "request_date": date, "today": today}
	}

	w := e.do(t, http.MethodPost, "/api/requests", map[string]string{"worker_id": taro.ID, "request_date": "2025-02-15"}, false)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	var created domain.Request
	decode(t, w, &created)
	if created.Status != domain.StatusPending || created.RequestDate != domain.MustParseDate("2025-02-15") {
		t.Fatalf("unexpected request %+v", created)
	}

	er := wantError(t, e.do(t, http.MethodPost, "/api/requests", body("2025-02-15", "2025-01-05"), false),
		http.StatusConflict, string(services.CodeDuplicateRequest))
	if er.Details["request_date"] != "2025-02-15" {
		t.Fatalf("duplicate details = %+v", er.Details)
	}

	er = wantError(t, e.do(t, http.MethodPost, "/api/requests", body("2025-02-16", "2025-01-15"), false),
		http.StatusUnprocessableEntity, string(services.CodeDeadlineExceeded))
	if er.Details["current_date"] != "2025-01-15" {
		t.Fatalf("deadline details = %+v", er.Details)
	}

	wantError(t, e.do(t, http.MethodPost, "/api/requests", body("2025-03-01", "2025-01-05"), false),
		http.StatusUnprocessableEntity, string(services.CodeNotNextMonth))
	wantError(t, e.do(t, http.MethodPost, "/api/requests", body("", "2025-01-05"), false),
		http.StatusBadRequest, string(services.CodeMissingField))
	wantError(t, e.do(t, http.MethodPost, "/api/requests", body("15/02/2025", ""), false),
		http.StatusBadRequest, ErrCodeBadRequest)
	wantError(t, e.do(t, http.MethodPost, "/api/requests",
		map[string]string{"worker_id": "nope", "request_date": "2025-02-15"}, false),
		http.StatusNotFound, string(services.CodeResourceNotFound))

	texts := e.msgs.texts()
	if len(texts) != 1 || texts[0] != notify.RequestReceivedText(domain.MustParseDate("2025-02-15")) {
		t.Fatalf("notifications = %q", texts)
	}
}

func TestApproveReject_Flow(t *testing.T) {
	e := newEnv(t, "2025-01-05T09:00:00Z")
	taro := e.worker(t, "U-taro", "Taro")

	var a, b domain.Request
	decode(t, e.do(t, http.MethodPost, "/api/requests", map[string]string{"worker_id": taro.ID, "request_date": "2025-02-10"}, false), &a)
	decode(t, e.do(t, http.MethodPost, "/api/requests", map[string]string{"worker_id": taro.ID, "request_date": "2025-02-11"}, false), &b)

	wantError(t, e.do(t, http.MethodPost, "/api/requests/"+a.ID+"/approve", nil, false),
		http.StatusBadRequest, string(services.CodeMissingField))

	w := e.do(t, http.MethodPost, "/api/requests/"+a.ID+"/approve", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("approve = %d %s", w.Code, w.Body.String())
	}
	var approved domain.Request
	decode(t, w, &approved)
	if approved.Status != domain.StatusApproved || approved.ProcessedBy == nil || *approved.ProcessedBy != e.admin.ID {
		t.Fatalf("approved = %+v", approved)
	}

	er := wantError(t, e.do(t, http.MethodPost, "/api/requests/"+a.ID+"/reject", nil, true),
		http.StatusConflict, string(services.CodeInvalidStatusTransition))
	if er.Details["current_status"] != "approved" || er.Details["attempted_action"] != "reject" {
		t.Fatalf("transition details = %+v", er.Details)
	}

	if w := e.do(t, http.MethodPost, "/api/requests/"+b.ID+"/reject", nil, true); w.Code != http.StatusOK {
		t.Fatalf("reject = %d %s", w.Code, w.Body.String())
	}
	wantError(t, e.do(t, http.MethodPost, "/api/requests/missing/approve", nil, true),
		http.StatusNotFound, string(services.CodeResourceNotFound))

	// case-insensitive status filter
	var rs []domain.Request
	decode(t, e.do(t, http.MethodGet, "/api/requests?status=APPROVED", nil, true), &rs)
	if len(rs) != 1 || rs[0].ID != a.ID {
		t.Fatalf("approved list = %+v", rs)
	}
	wantError(t, e.do(t, http.MethodGet, "/api/requests?status=done", nil, true),
		http.StatusBadRequest, ErrCodeBadRequest)
	wantError(t, e.do(t, http.MethodGet, "/api/requests?month=13", nil, true),
		http.StatusBadRequest, string(services.CodeInvalidRange))

	decode(t, e.do(t, http.MethodGet, "/api/workers/"+taro.ID+"/requests?status=rejected", nil, true), &rs)
	if len(rs) != 1 || rs[0].ID != b.ID {
		t.Fatalf("worker rejected list = %+v", rs)
	}

	var stats RequestStatsResponse
	decode(t, e.do(t, http.MethodGet, "/api/requests/stats?year=2025&month=2", nil, true), &stats)
	if stats.Approved != 1 || stats.Rejected != 1 || stats.Pending != 0 || stats.Total != 2 || stats.Month != "2025-02" {
		t.Fatalf("stats = %+v", stats)
	}

	want := []string{
		notify.RequestReceivedText(domain.MustParseDate("2025-02-10")),
		notify.RequestReceivedText(domain.MustParseDate("2025-02-11")),
		notify.RequestApprovedText(domain.MustParseDate("2025-02-10")),
		notify.RequestRejectedText(domain.MustParseDate("2025-02-11")),
	}
	got := e.msgs.texts()
	if len(got) != len(want) {
		t.Fatalf("notifications = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notification %d = %q, want %q", i, got[i], want[i])
		}
	}
}

type brokenRequests struct{ RequestService }

func (brokenRequests) List(context.Context, services.RequestQuery) ([]domain.Request, error) {
	return nil, errors.New("disk I/O error")
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	e := newEnv(t, "2025-01-05T09:00:00Z")
	deps := e.deps
	deps.Requests = brokenRequests{deps.Requests}

	r := gin.New()
	New(deps).Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requests", nil))

	er := wantError(t, w, http.StatusInternalServerError, ErrCodeInternal)
	if er.Message != "internal server error" {
		t.Fatalf("message leaked cause: %q", er.Message)
	}
}
