package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
	"github.com/tbourn/ngday-shift-backend/internal/http/middleware"
	"github.com/tbourn/ngday-shift-backend/internal/notify"
	"github.com/tbourn/ngday-shift-backend/internal/repo"
	"github.com/tbourn/ngday-shift-backend/internal/services"
)

// ---------- test DB ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ---------- recording messenger ----------

type pushed struct{ To, Text string }

type recorder struct {
	mu  sync.Mutex
	out []pushed
}

func (r *recorder) Push(_ context.Context, to, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, pushed{To: to, Text: text})
	return nil
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := make([]string, 0, len(r.out))
	for _, p := range r.out {
		s = append(s, p.Text)
	}
	return s
}

// ---------- environment ----------

type env struct {
	db    *gorm.DB
	r     *gin.Engine
	msgs  *recorder
	admin *domain.User
	deps  Deps
}

// newEnv wires real services over an in-memory DB with the clock fixed at
// now (RFC 3339).
func newEnv(t *testing.T, now string) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts, err := time.Parse(time.RFC3339, now)
	if err != nil {
		t.Fatalf("bad clock: %v", err)
	}
	clock := func() time.Time { return ts }

	db := newHandlerDB(t)
	msgs := &recorder{}
	delivery := notify.NewDelivery(msgs, notify.NewMemoryQueue())
	n := notify.NewNotifier(delivery)

	deadlines := &services.DeadlineService{DB: db, DefaultDay: services.DefaultDeadlineDay, Now: clock}
	deps := Deps{
		Users:     &services.UserService{DB: db},
		Requests:  &services.RequestService{DB: db, Deadlines: deadlines, Notifier: n, Now: clock},
		Shifts:    &services.ShiftService{DB: db, Notifier: n, Now: clock},
		Deadlines: deadlines,
		Reminders: &services.ReminderService{DB: db, Deadlines: deadlines, Notifier: n, Now: clock},
		Queue:     delivery,
		Location:  time.UTC,
		Now:       clock,
	}

	r := gin.New()
	New(deps).Register(r.Group("/api"))

	admin := &domain.User{Name: "Boss", Role: domain.RoleAdmin}
	if err := repo.CreateUser(context.Background(), db, admin); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return &env{db: db, r: r, msgs: msgs, admin: admin, deps: deps}
}

// do performs a JSON request; body may be nil. When admin is true the
// X-Admin-ID header is set to the seeded admin.
func (e *env) do(t *testing.T, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set(middleware.HeaderAdminID, e.admin.ID)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *env) worker(t *testing.T, lineID, name string) domain.User {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/workers", map[string]string{"line_id": lineID, "name": name}, false)
	if w.Code != http.StatusCreated {
		t.Fatalf("register worker: %d %s", w.Code, w.Body.String())
	}
	var u domain.User
	decode(t, w, &u)
	return u
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

// wantError asserts status and code and returns the envelope.
func wantError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	var er ErrorResponse
	decode(t, w, &er)
	if er.Code != code {
		t.Fatalf("code = %q, want %q (body %s)", er.Code, code, w.Body.String())
	}
	return er
}
