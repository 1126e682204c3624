// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Request
// model.
//
// All reads preload the requesting worker (and the processing admin when
// set) so every code path reconstructs a Request the same way.
//
// Error semantics:
//   - Inserting a second request for the same (worker_id, request_date)
//     violates ux_requests_worker_date; the raw DB error is returned and
//     the service layer translates it (see IsDuplicate).
//   - GetRequest returns ErrNotFound when the id does not exist.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// pendingFirst orders open requests before processed ones, newest date first.
const pendingFirst = "CASE WHEN ng_requests.status = 'pending' THEN 0 ELSE 1 END ASC, ng_requests.request_date DESC, ng_requests.created_at DESC"

// RequestFilter narrows ListRequests. Zero values mean "no constraint".
type RequestFilter struct {
	Status   domain.RequestStatus
	WorkerID string
	// NameKey matches as a substring of the worker's normalized name.
	NameKey string
	// From and To bound request_date inclusively.
	From, To domain.Date
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Worker").Preload("Processor")
}

// CreateRequest inserts r with status pending, assigning a UUID when r.ID
// is empty and created_at when unset.
func CreateRequest(ctx context.Context, db *gorm.DB, r *domain.Request) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.Status = domain.StatusPending
	r.ProcessedAt, r.ProcessedBy = nil, nil
	return db.WithContext(ctx).Omit("Worker", "Processor").Create(r).Error
}

// GetRequest fetches a request by id with its relations.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.Request, error) {
	var r domain.Request
	if err := withRelations(db.WithContext(ctx)).First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// RequestExists reports whether workerID already has a request dated d.
func RequestExists(ctx context.Context, db *gorm.DB, workerID string, d domain.Date) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Request{}).
		Where("worker_id = ? AND request_date = ?", workerID, d).
		Count(&n).Error
	return n > 0, err
}

// TransitionRequest moves a pending request to status `to`, stamping
// processed_at and processed_by in the same statement. It reports false
// when no pending row with that id exists, which makes concurrent
// transitions on the same request mutually exclusive.
func TransitionRequest(ctx context.Context, db *gorm.DB, id string, to domain.RequestStatus, adminID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.Request{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"status":       to,
			"processed_at": at,
			"processed_by": adminID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListRequests returns requests matching f, pending first and then by
// request_date descending.
func ListRequests(ctx context.Context, db *gorm.DB, f RequestFilter) ([]domain.Request, error) {
	q := withRelations(db.WithContext(ctx)).Model(&domain.Request{})
	q = applyRequestFilter(db, q, f)

	var out []domain.Request
	err := q.Order(pendingFirst).Find(&out).Error
	return out, err
}

// ListRequestsByWorker returns a worker's requests, newest date first.
func ListRequestsByWorker(ctx context.Context, db *gorm.DB, workerID string, status domain.RequestStatus) ([]domain.Request, error) {
	q := withRelations(db.WithContext(ctx)).Where("worker_id = ?", workerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.Request
	err := q.Order("request_date DESC, created_at DESC").Find(&out).Error
	return out, err
}

// ListApprovedRequests returns approved requests dated within [from, to],
// ordered by date and worker.
func ListApprovedRequests(ctx context.Context, db *gorm.DB, from, to domain.Date) ([]domain.Request, error) {
	var out []domain.Request
	err := db.WithContext(ctx).Preload("Worker").
		Where("status = ?", domain.StatusApproved).
		Where("request_date >= ? AND request_date <= ?", from, to).
		Order("request_date ASC, worker_id ASC").
		Find(&out).Error
	return out, err
}

func applyRequestFilter(db, q *gorm.DB, f RequestFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("ng_requests.status = ?", f.Status)
	}
	if f.WorkerID != "" {
		q = q.Where("ng_requests.worker_id = ?", f.WorkerID)
	}
	if f.NameKey != "" {
		names := db.Model(&domain.User{}).
			Select("id").
			Where(`name_key LIKE ? ESCAPE '\'`, "%"+escapeLike(f.NameKey)+"%")
		q = q.Where("ng_requests.worker_id IN (?)", names)
	}
	if !f.From.IsZero() {
		q = q.Where("ng_requests.request_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("ng_requests.request_date <= ?", f.To)
	}
	return q
}
