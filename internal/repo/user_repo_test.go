package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

func TestUsers_CreateGetAndLineIDUniqueness(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	w := seedWorker(t, db, "Taro", "U1")
	if w.ID == "" {
		t.Fatalf("expected generated id")
	}

	got, err := GetUser(ctx, db, w.ID)
	if err != nil || got.Name != "Taro" || got.Role != domain.RoleWorker {
		t.Fatalf("GetUser = %+v, %v", got, err)
	}
	byLine, err := GetUserByLineID(ctx, db, "U1")
	if err != nil || byLine.ID != w.ID {
		t.Fatalf("GetUserByLineID = %+v, %v", byLine, err)
	}
	if _, err := GetUser(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	line := "U1"
	err = CreateUser(ctx, db, &domain.User{Name: "Other", LineID: &line, Role: domain.RoleWorker})
	if !IsDuplicate(err) {
		t.Fatalf("expected duplicate line id error, got %v", err)
	}
}

func TestUsers_ListByRoleAndByIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b := seedWorker(t, db, "bob", "U2")
	a := seedWorker(t, db, "Alice", "U1")
	adm := seedAdmin(t, db, "Boss")

	workers, err := ListUsersByRole(ctx, db, domain.RoleWorker)
	if err != nil {
		t.Fatalf("list workers: %v", err)
	}
	if len(workers) != 2 || workers[0].ID != a.ID || workers[1].ID != b.ID {
		t.Fatalf("workers not ordered by normalized name: %+v", workers)
	}

	m, err := GetUsersByIDs(ctx, db, []string{a.ID, adm.ID, "ghost"})
	if err != nil {
		t.Fatalf("GetUsersByIDs: %v", err)
	}
	if len(m) != 2 || m[adm.ID].Role != domain.RoleAdmin {
		t.Fatalf("GetUsersByIDs = %+v", m)
	}
	if m, err := GetUsersByIDs(ctx, db, nil); err != nil || len(m) != 0 {
		t.Fatalf("empty ids: %v %v", m, err)
	}
}

func TestListWorkersWithoutRequests(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pending := seedWorker(t, db, "A-pending", "U1")
	approved := seedWorker(t, db, "B-approved", "U2")
	rejected := seedWorker(t, db, "C-rejected", "U3")
	otherMonth := seedWorker(t, db, "D-other-month", "U4")
	none := seedWorker(t, db, "E-none", "U5")
	adm := seedAdmin(t, db, "Admin")

	seedRequest(t, db, pending.ID, "2025-02-03")
	r2 := seedRequest(t, db, approved.ID, "2025-02-28")
	r3 := seedRequest(t, db, rejected.ID, "2025-02-01")
	seedRequest(t, db, otherMonth.ID, "2025-03-01")
	if _, err := TransitionRequest(ctx, db, r2.ID, domain.StatusApproved, adm.ID, r2.CreatedAt); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := TransitionRequest(ctx, db, r3.ID, domain.StatusRejected, adm.ID, r3.CreatedAt); err != nil {
		t.Fatalf("reject: %v", err)
	}

	feb := domain.YearMonth{Year: 2025, Month: 2}
	got, err := ListWorkersWithoutRequests(ctx, db, feb.FirstDay(), feb.LastDay())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != otherMonth.ID || got[1].ID != none.ID {
		t.Fatalf("unexpected workers: %+v", got)
	}
}
