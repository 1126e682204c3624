// Package domain defines the persistence models for workers, NG-day
// requests, the deadline setting, shift assignments, reminder logs and the
// notification outbox. These types are mapped with GORM and form the core
// data layer of the shift backend.
package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role distinguishes workers (who submit NG days) from admins (who process
// them and assign shifts). A user's role never changes after creation.
type Role string

const (
	RoleWorker Role = "worker"
	RoleAdmin  Role = "admin"
)

// RequestStatus is the lifecycle state of an NG-day request. The lowercase
// spelling is the only representation accepted at the storage boundary.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// ParseRequestStatus accepts user input in any casing and returns the
// canonical status.
func ParseRequestStatus(s string) (RequestStatus, error) {
	st := RequestStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown request status %q", s)
	}
	return st, nil
}

// Valid reports whether s is one of the canonical statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s RequestStatus) Terminal() bool { return s == StatusApproved || s == StatusRejected }

// Value implements driver.Valuer and refuses non-canonical values.
func (s RequestStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid request status %q", string(s))
	}
	return string(s), nil
}

// Scan implements sql.Scanner. Rows carrying a non-canonical status are a
// migration problem (see repo.NormalizeRequestStatuses) and fail loudly.
func (s *RequestStatus) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("domain.RequestStatus: cannot scan %T", src)
	}
	st := RequestStatus(raw)
	if !st.Valid() {
		return fmt.Errorf("non-canonical request status %q in storage", raw)
	}
	*s = st
	return nil
}

// User is a worker or an admin.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - LineID: chat platform user id; unique, set for workers only.
//   - Name: display name.
//   - NameKey: NormalizeName(Name), maintained by the BeforeSave hook and
//     used for case/width-insensitive name search.
//   - Role: "worker" or "admin" (enforced by DB constraint).
type User struct {
	ID        string    `json:"id"                gorm:"type:char(36);primaryKey"`
	LineID    *string   `json:"line_id,omitempty" gorm:"type:varchar(64);uniqueIndex:ux_users_line_id"`
	Name      string    `json:"name"              gorm:"type:varchar(255);not null"`
	NameKey   string    `json:"-"                 gorm:"type:varchar(255);not null;index"`
	Role      Role      `json:"role"              gorm:"type:varchar(16);not null;check:role IN ('worker','admin')"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// BeforeSave keeps NameKey in sync with Name.
func (u *User) BeforeSave(*gorm.DB) error {
	u.NameKey = NormalizeName(u.Name)
	return nil
}

// ChatID returns the user's chat platform id, or "" when none is linked.
func (u *User) ChatID() string {
	if u == nil || u.LineID == nil {
		return ""
	}
	return *u.LineID
}

// Request is a worker's NG-day request for a single date.
//
// A worker may hold at most one request per date (unique index).
// ProcessedAt and ProcessedBy are set together, exactly once, when the
// request leaves the pending state.
type Request struct {
	ID          string        `json:"id"                     gorm:"type:char(36);primaryKey"`
	WorkerID    string        `json:"worker_id"              gorm:"type:char(36);not null;uniqueIndex:ux_requests_worker_date,priority:1"`
	RequestDate Date          `json:"request_date"           gorm:"type:varchar(10);not null;uniqueIndex:ux_requests_worker_date,priority:2;index"`
	Status      RequestStatus `json:"status"                 gorm:"type:varchar(16);not null;index;check:status IN ('pending','approved','rejected')"`
	CreatedAt   time.Time     `json:"created_at"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
	ProcessedBy *string       `json:"processed_by,omitempty" gorm:"type:char(36)"`

	// Worker is the submitting worker. Requests are cascade-deleted with
	// their worker.
	Worker User `json:"worker" gorm:"foreignKey:WorkerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	// Processor is the admin who approved or rejected the request.
	Processor *User `json:"processor,omitempty" gorm:"foreignKey:ProcessedBy;references:ID"`
}

// TableName returns the database table name for Request.
func (Request) TableName() string { return "ng_requests" }

// Setting is a singleton keyed configuration value editable by admins.
type Setting struct {
	Key       string    `json:"key"                  gorm:"column:setting_key;type:varchar(64);primaryKey"`
	Value     string    `json:"value"                gorm:"type:varchar(255);not null"`
	UpdatedAt time.Time `json:"updated_at"           gorm:"autoUpdateTime:false"`
	UpdatedBy *string   `json:"updated_by,omitempty" gorm:"type:char(36)"`
}

// TableName returns the database table name for Setting.
func (Setting) TableName() string { return "settings" }

// SettingRevision is one entry of the append-only change history of a
// Setting. Versions start at 1 and are unique per key.
type SettingRevision struct {
	ID        string    `json:"id"                   gorm:"type:char(36);primaryKey"`
	Key       string    `json:"key"                  gorm:"column:setting_key;type:varchar(64);not null;uniqueIndex:ux_setting_revisions_key_version,priority:1"`
	Version   int       `json:"version"              gorm:"not null;uniqueIndex:ux_setting_revisions_key_version,priority:2"`
	Value     string    `json:"value"                gorm:"type:varchar(255);not null"`
	ChangedAt time.Time `json:"changed_at"           gorm:"not null;index"`
	ChangedBy *string   `json:"changed_by,omitempty" gorm:"type:char(36)"`
}

// TableName returns the database table name for SettingRevision.
func (SettingRevision) TableName() string { return "setting_revisions" }

// Shift assigns one worker to one date. A worker appears at most once per
// date (unique index).
type Shift struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ShiftDate Date      `json:"shift_date" gorm:"type:varchar(10);not null;uniqueIndex:ux_shifts_date_worker,priority:1"`
	WorkerID  string    `json:"worker_id"  gorm:"type:char(36);not null;uniqueIndex:ux_shifts_date_worker,priority:2;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
	UpdatedBy string    `json:"updated_by" gorm:"type:char(36);not null"`

	Worker User `json:"worker" gorm:"foreignKey:WorkerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Shift.
func (Shift) TableName() string { return "shifts" }

// ReminderLog records one successfully delivered deadline reminder.
type ReminderLog struct {
	ID                 string    `json:"id"                   gorm:"type:char(36);primaryKey"`
	WorkerID           string    `json:"worker_id"            gorm:"type:char(36);not null;index"`
	SentAt             time.Time `json:"sent_at"              gorm:"not null"`
	DaysBeforeDeadline int       `json:"days_before_deadline" gorm:"not null"`
	TargetMonth        int       `json:"target_month"         gorm:"not null;index:idx_reminder_logs_target,priority:2"`
	TargetYear         int       `json:"target_year"          gorm:"not null;index:idx_reminder_logs_target,priority:1"`

	Worker User `json:"-" gorm:"foreignKey:WorkerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ReminderLog.
func (ReminderLog) TableName() string { return "reminder_logs" }

// OutboxMessage is a chat message whose delivery has been postponed. Rows
// are consumed in ID order.
type OutboxMessage struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Recipient  string    `gorm:"type:varchar(64);not null"`
	Text       string    `gorm:"type:text;not null"`
	RetryCount int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the database table name for OutboxMessage.
func (OutboxMessage) TableName() string { return "notification_outbox" }
