package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

func TestSettings_UpsertOverwritesSingleRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := GetSetting(ctx, db, "deadline_day"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	by := "admin-1"
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := UpsertSetting(ctx, db, &domain.Setting{Key: "deadline_day", Value: "10", UpdatedAt: t1, UpdatedBy: &by}); err != nil {
		t.Fatalf("upsert 1: %v", err)
	}
	t2 := t1.Add(time.Hour)
	if err := UpsertSetting(ctx, db, &domain.Setting{Key: "deadline_day", Value: "15", UpdatedAt: t2, UpdatedBy: &by}); err != nil {
		t.Fatalf("upsert 2: %v", err)
	}

	var n int64
	db.Model(&domain.Setting{}).Count(&n)
	if n != 1 {
		t.Fatalf("settings rows = %d; want 1", n)
	}
	got, err := GetSetting(ctx, db, "deadline_day")
	if err != nil || got.Value != "15" || !got.UpdatedAt.Equal(t2) {
		t.Fatalf("GetSetting = %+v, %v", got, err)
	}
}

func TestSettingRevisions_VersionedNewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, v := range []string{"10", "12", "8"} {
		rev, err := AppendSettingRevision(ctx, db, "deadline_day", v, base.Add(time.Duration(i)*time.Hour), nil)
		if err != nil {
			t.Fatalf("append %s: %v", v, err)
		}
		if rev.Version != i+1 {
			t.Fatalf("version = %d; want %d", rev.Version, i+1)
		}
	}
	// versions are per key
	other, err := AppendSettingRevision(ctx, db, "other", "x", base, nil)
	if err != nil || other.Version != 1 {
		t.Fatalf("other key: %+v, %v", other, err)
	}

	all, err := ListSettingRevisions(ctx, db, "deadline_day", 0)
	if err != nil || len(all) != 3 || all[0].Value != "8" || all[2].Value != "10" {
		t.Fatalf("all revisions: %+v, %v", all, err)
	}
	two, _ := ListSettingRevisions(ctx, db, "deadline_day", 2)
	if len(two) != 2 || two[0].Version != 3 {
		t.Fatalf("limited revisions: %+v", two)
	}

	dup := &domain.SettingRevision{ID: "dup", Key: "deadline_day", Version: 2, Value: "1", ChangedAt: base}
	if err := db.Create(dup).Error; !IsDuplicate(err) {
		t.Fatalf("expected (key, version) uniqueness, got %v", err)
	}
}
