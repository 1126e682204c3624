package repo

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// newTestDB opens a private in-memory database and migrates the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedWorker(t *testing.T, db *gorm.DB, name, lineID string) *domain.User {
	t.Helper()
	u := &domain.User{Name: name, LineID: &lineID, Role: domain.RoleWorker}
	if err := CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("seed worker %s: %v", name, err)
	}
	return u
}

func seedAdmin(t *testing.T, db *gorm.DB, name string) *domain.User {
	t.Helper()
	u := &domain.User{Name: name, Role: domain.RoleAdmin}
	if err := CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("seed admin %s: %v", name, err)
	}
	return u
}

func seedRequest(t *testing.T, db *gorm.DB, workerID, date string) *domain.Request {
	t.Helper()
	r := &domain.Request{WorkerID: workerID, RequestDate: domain.MustParseDate(date)}
	if err := CreateRequest(context.Background(), db, r); err != nil {
		t.Fatalf("seed request %s/%s: %v", workerID, date, err)
	}
	return r
}
