package notify

import (
	"context"
	"sync"
)

// Background hands messages to Sender on their own goroutine so the calling
// request does not wait out the retry backoff. Send reports acceptance, not
// delivery; callers that need delivery evidence (the reminder batch) use the
// Delivery directly.
//
// The send keeps the caller's values but not its cancellation.
type Background struct {
	Sender Sender

	wg sync.WaitGroup
}

// NewBackground returns a Background sending through s.
func NewBackground(s Sender) *Background { return &Background{Sender: s} }

// Send starts the send and returns true.
func (b *Background) Send(ctx context.Context, to, text string) bool {
	ctx = context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.Sender.Send(ctx, to, text)
	}()
	return true
}

// Wait blocks until every started send has finished or ctx is done, and
// reports whether all sends finished.
func (b *Background) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
