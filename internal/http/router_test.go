package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/ngday-shift-backend/internal/config"
	"github.com/tbourn/ngday-shift-backend/internal/http/handlers"
	"github.com/tbourn/ngday-shift-backend/internal/http/middleware"
	"github.com/tbourn/ngday-shift-backend/internal/notify"
	"github.com/tbourn/ngday-shift-backend/internal/repo"
	"github.com/tbourn/ngday-shift-backend/internal/services"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testDeps(db *gorm.DB) handlers.Deps {
	delivery := notify.NewDelivery(notify.MessengerFunc(func(_ context.Context, _, _ string) error { return nil }), nil)
	n := notify.NewNotifier(delivery)
	deadlines := &services.DeadlineService{DB: db, DefaultDay: services.DefaultDeadlineDay}
	return handlers.Deps{
		Users:     &services.UserService{DB: db},
		Requests:  &services.RequestService{DB: db, Deadlines: deadlines, Notifier: n},
		Shifts:    &services.ShiftService{DB: db, Notifier: n},
		Deadlines: deadlines,
		Reminders: &services.ReminderService{DB: db, Deadlines: deadlines, Notifier: n},
		Queue:     delivery,
	}
}

func baseConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     100,
		RateBurst:   10,
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newRouter(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	r := gin.New()
	RegisterRoutes(r, db, testDeps(db), cfg)
	return r, db
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newRouter(t, baseConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://anywhere.test")
	w := serve(r, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("GET /health = %d %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-all CORS expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" || w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing request id or security headers: %v", w.Header())
	}

	w = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ngshift_http_requests_total") {
		t.Fatalf("GET /metrics = %d", w.Code)
	}

	w = serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), handlers.ErrCodeNotFound) {
		t.Fatalf("GET /nope = %d %s", w.Code, w.Body.String())
	}

	w = serve(r, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health = %d", w.Code)
	}
}

func TestRegisterRoutes_CORSAllowlist(t *testing.T) {
	cfg := baseConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r, _ := newRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	w := serve(r, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = serve(r, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected ACAO for foreign origin: %q", got)
	}
}

func TestRegisterRoutes_APIGroup(t *testing.T) {
	r, _ := newRouter(t, baseConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workers", strings.NewReader(`{"line_id":"U1","name":"Taro"}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(r, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST workers = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("API responses must not be cached: %v", w.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/settings/deadline", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = serve(r, req)
	if w.Code != http.StatusOK || w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("GET deadline = %d encoding %q", w.Code, w.Header().Get("Content-Encoding"))
	}

	// the admin API lives only under the base path
	if w := serve(r, httptest.NewRequest(http.MethodGet, "/settings/deadline", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("unprefixed route = %d", w.Code)
	}
}

func TestRegisterRoutes_RateLimitPerAdmin(t *testing.T) {
	cfg := baseConfig()
	cfg.RateRPS, cfg.RateBurst = 0.001, 1
	r, _ := newRouter(t, cfg)

	get := func(admin string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/settings/deadline", nil)
		req.Header.Set(middleware.HeaderAdminID, admin)
		return serve(r, req).Code
	}
	if c := get("a"); c != http.StatusOK {
		t.Fatalf("first = %d", c)
	}
	if c := get("a"); c != http.StatusTooManyRequests {
		t.Fatalf("second = %d", c)
	}
	if c := get("b"); c != http.StatusOK {
		t.Fatalf("other admin = %d", c)
	}
	// health and metrics are not limited
	for i := 0; i < 3; i++ {
		if w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil)); w.Code != http.StatusOK {
			t.Fatalf("health %d = %d", i, w.Code)
		}
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	r, db := newRouter(t, baseConfig())
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()

	if w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil)); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /health with closed DB = %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
	w = serve(r, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("short")))
	if w.Code != http.StatusOK {
		t.Fatalf("small body = %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}
