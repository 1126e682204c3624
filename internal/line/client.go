// Package line implements the LINE Messaging API push endpoint as a
// notify.Messenger on top of the official SDK
// (github.com/line/line-bot-sdk-go/v8/linebot/messaging_api).
//
// Outbound calls pass through a process-wide token bucket
// (golang.org/x/time/rate) so bursts of reminders stay below the channel's
// rate limit. Responses are classified for the delivery retry policy:
//   - 2xx: delivered.
//   - 429, 5xx and transport errors: transient (wrapped in notify.ErrTransient).
//   - any other status: fatal for this message.
//
// In dry-run mode messages are logged and every push fails with ErrDryRun,
// a fatal error, so nothing is queued or recorded as delivered.
package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tbourn/ngday-shift-backend/internal/notify"
)

// DefaultBaseURL is the production Messaging API host.
const DefaultBaseURL = "https://api.line.me"

// ErrDryRun is returned by Push in dry-run mode.
var ErrDryRun = errors.New("line client is in dry-run mode; message not sent")

// Options configures a Client. Zero values take the defaults noted.
type Options struct {
	BaseURL string        // DefaultBaseURL
	Token   string        // channel access token; required unless DryRun
	Timeout time.Duration // 10s
	RPS     float64       // 10
	Burst   int           // 10
	DryRun  bool
}

// Client pushes text messages to LINE users.
type Client struct {
	api     *messaging_api.MessagingApiAPI
	limiter *rate.Limiter
	dryRun  bool
}

// New returns a Client for opts. A missing token is an error unless
// opts.DryRun is set.
func New(opts Options) (*Client, error) {
	if opts.DryRun {
		return &Client{dryRun: true}, nil
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RPS <= 0 {
		opts.RPS = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.Token == "" {
		return nil, errors.New("line: channel access token is required")
	}

	api, err := messaging_api.NewMessagingApiAPI(opts.Token,
		messaging_api.WithEndpoint(strings.TrimRight(opts.BaseURL, "/")),
		messaging_api.WithHTTPClient(&http.Client{Timeout: opts.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("line: create messaging api client: %w", err)
	}
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
	}, nil
}

// DryRun reports whether the client only logs messages.
func (c *Client) DryRun() bool { return c.dryRun }

// Push implements notify.Messenger.
func (c *Client) Push(ctx context.Context, to, text string) error {
	if c.dryRun {
		log.Info().Str("to", to).Str("text", text).Msg("line dry-run push")
		return ErrDryRun
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return notify.Transient(fmt.Errorf("rate limiter: %w", err))
	}

	// WithContext sets the context on its receiver, so each call uses a copy.
	api := *c.api
	resp, _, err := api.WithContext(ctx).PushMessageWithHttpInfo(&messaging_api.PushMessageRequest{
		To:       to,
		Messages: []messaging_api.MessageInterface{messaging_api.TextMessage{Text: text}},
	}, "")
	return classify(resp, err)
}

// classify maps a push outcome onto the delivery policy. The SDK reports
// non-2xx statuses as errors together with the response.
func classify(resp *http.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp == nil {
		return notify.Transient(fmt.Errorf("push: %w", err))
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// accepted; only the response body failed to decode
		log.Debug().Err(err).Int("status", resp.StatusCode).Msg("line push response not decoded")
		return nil
	}
	err = fmt.Errorf("line push returned status %d: %w", resp.StatusCode, err)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return notify.Transient(err)
	}
	return err
}
