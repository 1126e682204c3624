package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Policy bounds the retries of a single send.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Delays[i] is the wait before retry i+1; the last entry repeats.
	Delays []time.Duration
}

// DefaultPolicy retries three times after 1s, 2s and 5s.
var DefaultPolicy = Policy{
	MaxRetries: 3,
	Delays:     []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second},
}

func (p Policy) delay(retry int) time.Duration {
	if len(p.Delays) == 0 {
		return 0
	}
	if retry >= len(p.Delays) {
		retry = len(p.Delays) - 1
	}
	return p.Delays[retry]
}

// Delivery sends messages through a Messenger.
//
// A transient failure is retried while the message's retry count is below
// MaxRetries; once the budget is spent, or the context is canceled during a
// backoff wait, the message is pushed onto Queue with the retries consumed
// so far. Fatal failures are dropped.
type Delivery struct {
	Messenger Messenger
	Queue     Queue
	Policy    Policy

	// consumer guards ProcessQueue so only one pass drains at a time.
	consumer sync.Mutex
}

// NewDelivery returns a Delivery using DefaultPolicy and an in-memory queue
// when q is nil.
func NewDelivery(m Messenger, q Queue) *Delivery {
	if q == nil {
		q = NewMemoryQueue()
	}
	return &Delivery{Messenger: m, Queue: q, Policy: DefaultPolicy}
}

// Send delivers text to the recipient and reports success. It blocks for
// the cumulative backoff while retrying.
func (d *Delivery) Send(ctx context.Context, to, text string) bool {
	return d.send(ctx, Message{Recipient: to, Text: text})
}

func (d *Delivery) send(ctx context.Context, m Message) bool {
	tr := otel.Tracer("notify/Delivery")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(attribute.String("recipient", m.Recipient), attribute.Int("retry.start", m.RetryCount)))
	defer span.End()

	if strings.TrimSpace(m.Recipient) == "" || strings.TrimSpace(m.Text) == "" {
		failedTotal.WithLabelValues("invalid").Inc()
		log.Warn().Str("recipient", m.Recipient).Msg("refusing to send empty message")
		return false
	}

	for {
		err := d.Messenger.Push(ctx, m.Recipient, m.Text)
		if err == nil {
			sentTotal.Inc()
			span.SetAttributes(attribute.Int("retry.count", m.RetryCount))
			log.Debug().Str("recipient", m.Recipient).Int("retries", m.RetryCount).Msg("message sent")
			return true
		}
		span.RecordError(err)

		if !IsTransient(err) {
			failedTotal.WithLabelValues("fatal").Inc()
			log.Error().Err(err).Str("recipient", m.Recipient).Msg("message rejected; dropping")
			return false
		}
		if m.RetryCount >= d.Policy.MaxRetries {
			failedTotal.WithLabelValues("exhausted").Inc()
			log.Warn().Err(err).Str("recipient", m.Recipient).Int("retries", m.RetryCount).
				Msg("retries exhausted; queueing message")
			d.enqueue(ctx, m)
			return false
		}

		wait := d.Policy.delay(m.RetryCount)
		log.Info().Err(err).Str("recipient", m.Recipient).Dur("delay", wait).Int("attempt", m.RetryCount+1).
			Msg("transient send failure; retrying")
		if !sleep(ctx, wait) {
			failedTotal.WithLabelValues("canceled").Inc()
			log.Warn().Str("recipient", m.Recipient).Int("retries", m.RetryCount).
				Msg("send canceled during backoff; queueing message")
			d.enqueue(ctx, m)
			return false
		}
		m.RetryCount++
		retriesTotal.Inc()
	}
}

func (d *Delivery) enqueue(ctx context.Context, m Message) {
	// The caller's context may already be done; the push must still happen.
	if err := d.Queue.Push(context.WithoutCancel(ctx), m); err != nil {
		log.Error().Err(err).Str("recipient", m.Recipient).Msg("failed to queue message; message lost")
		return
	}
	enqueuedTotal.Inc()
}

// ProcessQueue makes one pass over the messages queued when it starts,
// re-sending each exactly once under the usual policy, and returns how many
// were delivered. Messages that fail again are re-queued behind the pass.
// A message is removed only after its attempt, so an interrupted pass
// resends rather than loses it.
func (d *Delivery) ProcessQueue(ctx context.Context) (int, error) {
	d.consumer.Lock()
	defer d.consumer.Unlock()

	n, err := d.Queue.Len(ctx)
	if err != nil || n == 0 {
		return 0, err
	}
	log.Info().Int("queued", n).Msg("processing notification queue")

	sent := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		m, ok, err := d.Queue.Peek(ctx)
		if err != nil {
			return sent, err
		}
		if !ok {
			break
		}
		if d.send(ctx, m) {
			sent++
		}
		if err := d.Queue.Remove(context.WithoutCancel(ctx), m); err != nil {
			return sent, err
		}
	}
	log.Info().Int("sent", sent).Int("queued", n).Msg("notification queue processed")
	return sent, nil
}

// QueueLen returns the number of queued messages.
func (d *Delivery) QueueLen(ctx context.Context) (int, error) { return d.Queue.Len(ctx) }

// sleep waits for dur and reports false if ctx ended first.
func sleep(ctx context.Context, dur time.Duration) bool {
	if dur <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
