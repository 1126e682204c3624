package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
	"github.com/tbourn/ngday-shift-backend/internal/repo"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
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
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func mkWorker(t *testing.T, db *gorm.DB, name string) *domain.User {
	t.Helper()
	line := "U" + uuid.NewString()[:8]
	u := &domain.User{Name: name, LineID: &line, Role: domain.RoleWorker}
	if err := repo.CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("create worker: %v", err)
	}
	return u
}

func mkAdmin(t *testing.T, db *gorm.DB, name string) *domain.User {
	t.Helper()
	u := &domain.User{Name: name, Role: domain.RoleAdmin}
	if err := repo.CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return u
}

func mkRequest(t *testing.T, db *gorm.DB, workerID, date string, status domain.RequestStatus) *domain.Request {
	t.Helper()
	r := &domain.Request{WorkerID: workerID, RequestDate: domain.MustParseDate(date)}
	if err := repo.CreateRequest(context.Background(), db, r); err != nil {
		t.Fatalf("create request: %v", err)
	}
	if status != domain.StatusPending {
		admin := mkAdmin(t, db, "approver")
		if _, err := repo.TransitionRequest(context.Background(), db, r.ID, status, admin.ID, time.Now()); err != nil {
			t.Fatalf("transition: %v", err)
		}
	}
	return r
}

type fixedDeadline int

func (d fixedDeadline) DeadlineDay(context.Context) int { return int(d) }

func fixedClock(s string) func() time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return func() time.Time { return t }
}

type sentMessage struct {
	Kind string
	To   string
	Date domain.Date
	// reminder fields
	Target   domain.YearMonth
	Deadline int
	DaysLeft int
}

// fakeNotifier records every message and fails for recipients in fail.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[string]bool
}

func (f *fakeNotifier) record(m sentMessage) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return !f.fail[m.To]
}

func (f *fakeNotifier) RequestReceived(_ context.Context, to string, d domain.Date) bool {
	return f.record(sentMessage{Kind: "received", To: to, Date: d})
}

func (f *fakeNotifier) RequestApproved(_ context.Context, to string, d domain.Date) bool {
	return f.record(sentMessage{Kind: "approved", To: to, Date: d})
}

func (f *fakeNotifier) RequestRejected(_ context.Context, to string, d domain.Date) bool {
	return f.record(sentMessage{Kind: "rejected", To: to, Date: d})
}

func (f *fakeNotifier) ShiftConfirmed(_ context.Context, to string, d domain.Date) bool {
	return f.record(sentMessage{Kind: "shift", To: to, Date: d})
}

func (f *fakeNotifier) DeadlineReminder(_ context.Context, to string, target domain.YearMonth, deadline, days int) bool {
	return f.record(sentMessage{Kind: "reminder", To: to, Target: target, Deadline: deadline, DaysLeft: days})
}

func (f *fakeNotifier) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Kind)
	}
	return out
}

func d(s string) domain.Date { return domain.MustParseDate(s) }

func wantCode(t *testing.T, err error, code ErrorCode) *ValidationError {
	t.Helper()
	ve, ok := AsValidation(err)
	if !ok {
		t.Fatalf("want %s, got %v", code, err)
	}
	if ve.Code != code {
		t.Fatalf("want %s, got %s (%s)", code, ve.Code, ve.Message)
	}
	return ve
}
