package notify

import (
	"context"
	"fmt"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// Sender is what Notifier needs from Delivery.
type Sender interface {
	Send(ctx context.Context, to, text string) bool
}

// Notifier composes the fixed worker-facing messages and sends them.
type Notifier struct {
	Sender Sender
}

// NewNotifier returns a Notifier sending through s.
func NewNotifier(s Sender) *Notifier { return &Notifier{Sender: s} }

// RequestReceived confirms a submitted NG-day request.
func (n *Notifier) RequestReceived(ctx context.Context, to string, d domain.Date) bool {
	return n.Sender.Send(ctx, to, RequestReceivedText(d))
}

// RequestApproved tells the worker their NG day was approved.
func (n *Notifier) RequestApproved(ctx context.Context, to string, d domain.Date) bool {
	return n.Sender.Send(ctx, to, RequestApprovedText(d))
}

// RequestRejected tells the worker their NG day was rejected.
func (n *Notifier) RequestRejected(ctx context.Context, to string, d domain.Date) bool {
	return n.Sender.Send(ctx, to, RequestRejectedText(d))
}

// ShiftConfirmed tells a newly assigned worker about their shift on d.
func (n *Notifier) ShiftConfirmed(ctx context.Context, to string, d domain.Date) bool {
	return n.Sender.Send(ctx, to, ShiftConfirmedText(d))
}

// DeadlineReminder asks a worker with no request for target to submit one
// before the deadline day.
func (n *Notifier) DeadlineReminder(ctx context.Context, to string, target domain.YearMonth, deadlineDay, daysLeft int) bool {
	return n.Sender.Send(ctx, to, DeadlineReminderText(target, deadlineDay, daysLeft))
}

// RequestReceivedText is the submission confirmation for d.
func RequestReceivedText(d domain.Date) string {
	return fmt.Sprintf("NG日申請を受け付けました。\n日付: %s\nステータス: 保留中\n\n管理者の承認をお待ちください。", d)
}

// RequestApprovedText is the approval notice for d.
func RequestApprovedText(d domain.Date) string {
	return fmt.Sprintf("NG日申請が承認されました。\n日付: %s\nステータス: 承認済み\n\nこの日はシフトに入りません。", d)
}

// RequestRejectedText is the rejection notice for d.
func RequestRejectedText(d domain.Date) string {
	return fmt.Sprintf("NG日申請が却下されました。\n日付: %s\nステータス: 却下\n\n詳細については管理者にお問い合わせください。", d)
}

// ShiftConfirmedText is the shift confirmation for d.
func ShiftConfirmedText(d domain.Date) string {
	return fmt.Sprintf("シフトが確定しました。\n日付: %s\n\n詳細はシフト表をご確認ください。", d)
}

// DeadlineReminderText is the reminder for target, daysLeft days before
// the deadline.
func DeadlineReminderText(target domain.YearMonth, deadlineDay, daysLeft int) string {
	return fmt.Sprintf("【リマインダー】\n%sのNG日申請締切が近づいています。\n\n締切日: 毎月%d日\n残り: %d日\n\nまだ申請されていない場合は、お早めにご申請ください。",
		target.Label(), deadlineDay, daysLeft)
}
