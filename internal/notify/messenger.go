// Package notify delivers chat messages to workers. Delivery retries
// transient failures with a bounded backoff schedule and parks messages
// that exhaust it in a Queue for a later ProcessQueue pass, so a failed
// notification is postponed rather than lost.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// ErrTransient marks a failure worth retrying (rate limiting, upstream 5xx,
// network trouble). Messenger implementations wrap it; any other error is
// treated as fatal for the message.
var ErrTransient = errors.New("transient delivery failure")

// Transient wraps err so that errors.Is(err, ErrTransient) holds.
func Transient(err error) error {
	if err == nil {
		return ErrTransient
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// Messenger pushes one text message to one chat recipient.
type Messenger interface {
	Push(ctx context.Context, to, text string) error
}

// MessengerFunc adapts a function to Messenger.
type MessengerFunc func(ctx context.Context, to, text string) error

// Push implements Messenger.
func (f MessengerFunc) Push(ctx context.Context, to, text string) error { return f(ctx, to, text) }
