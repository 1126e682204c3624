package notify

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/tbourn/ngday-shift-backend/internal/repo"
)

// Message is a queued notification together with the number of retries it
// has already consumed. ID identifies the stored row in a StoreQueue and is
// zero elsewhere.
type Message struct {
	ID         uint
	Recipient  string
	Text       string
	RetryCount int
}

// Queue is a FIFO of postponed messages. Push may be called concurrently;
// Peek and Remove are called by a single consumer at a time.
//
// A message stays queued until the consumer removes it, so a message being
// re-sent when the process dies is sent again on the next pass.
type Queue interface {
	Push(ctx context.Context, m Message) error
	// Peek returns the oldest message without removing it. ok is false when
	// the queue is empty.
	Peek(ctx context.Context) (m Message, ok bool, err error)
	// Remove deletes m, as returned by Peek.
	Remove(ctx context.Context, m Message) error
	Len(ctx context.Context) (int, error)
}

// MemoryQueue is an in-process Queue. Its contents do not survive a restart.
type MemoryQueue struct {
	mu    sync.Mutex
	items []Message
}

// NewMemoryQueue returns an empty MemoryQueue.
func NewMemoryQueue() *MemoryQueue { return &MemoryQueue{} }

// Push appends m.
func (q *MemoryQueue) Push(_ context.Context, m Message) error {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
	return nil
}

// Peek returns the head of the queue.
func (q *MemoryQueue) Peek(context.Context) (Message, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Message{}, false, nil
	}
	return q.items[0], true, nil
}

// Remove deletes the first message equal to m.
func (q *MemoryQueue) Remove(_ context.Context, m Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, it := range q.items {
		if it == m {
			copy(q.items[i:], q.items[i+1:])
			q.items[len(q.items)-1] = Message{}
			q.items = q.items[:len(q.items)-1]
			return nil
		}
	}
	return nil
}

// Len returns the number of queued messages.
func (q *MemoryQueue) Len(context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}

// StoreQueue keeps postponed messages in the notification_outbox table, so
// they survive restarts and can be flushed by a separate process.
type StoreQueue struct {
	DB *gorm.DB
}

// Push appends m to the outbox.
func (q *StoreQueue) Push(ctx context.Context, m Message) error {
	return repo.PushOutbox(ctx, q.DB, m.Recipient, m.Text, m.RetryCount)
}

// Peek returns the oldest outbox row.
func (q *StoreQueue) Peek(ctx context.Context) (Message, bool, error) {
	row, err := repo.PeekOutbox(ctx, q.DB)
	if errors.Is(err, repo.ErrNotFound) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, err
	}
	return Message{ID: row.ID, Recipient: row.Recipient, Text: row.Text, RetryCount: row.RetryCount}, true, nil
}

// Remove deletes the outbox row of m.
func (q *StoreQueue) Remove(ctx context.Context, m Message) error {
	return repo.DeleteOutbox(ctx, q.DB, m.ID)
}

// Len returns the number of outbox rows.
func (q *StoreQueue) Len(ctx context.Context) (int, error) {
	n, err := repo.CountOutbox(ctx, q.DB)
	return int(n), err
}
