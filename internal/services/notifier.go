package services

import (
	"context"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// Notifier sends the fixed chat messages triggered by state changes. Every
// method reports whether the message was delivered; an undelivered message
// is the implementation's to queue or drop and never fails the calling
// operation.
type Notifier interface {
	RequestReceived(ctx context.Context, to string, d domain.Date) bool
	RequestApproved(ctx context.Context, to string, d domain.Date) bool
	RequestRejected(ctx context.Context, to string, d domain.Date) bool
	ShiftConfirmed(ctx context.Context, to string, d domain.Date) bool
	DeadlineReminder(ctx context.Context, to string, target domain.YearMonth, deadlineDay, daysLeft int) bool
}
