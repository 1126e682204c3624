package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// RequestCounts tallies requests per status.
type RequestCounts struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// Total returns the number of requests across all statuses.
func (c RequestCounts) Total() int64 { return c.Pending + c.Approved + c.Rejected }

// CountRequestsByStatus counts requests dated within [from, to] per status.
func CountRequestsByStatus(ctx context.Context, db *gorm.DB, from, to domain.Date) (RequestCounts, error) {
	var rows []struct {
		Status domain.RequestStatus
		N      int64
	}
	err := db.WithContext(ctx).Model(&domain.Request{}).
		Select("status, COUNT(*) AS n").
		Where("request_date >= ? AND request_date <= ?", from, to).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return RequestCounts{}, err
	}

	var out RequestCounts
	for _, r := range rows {
		switch r.Status {
		case domain.StatusPending:
			out.Pending = r.N
		case domain.StatusApproved:
			out.Approved = r.N
		case domain.StatusRejected:
			out.Rejected = r.N
		}
	}
	return out, nil
}
