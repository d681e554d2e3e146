// Package webhook posts block messages to an incoming chat webhook.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/JakeFAU/leaderboard-webhooks/internal/metrics"
)

// Message is one webhook post.
type Message struct {
	Username  string        `json:"username"`
	IconEmoji string        `json:"icon_emoji"`
	Blocks    []slack.Block `json:"blocks"`
}

// Sink delivers messages.
type Sink interface {
	Post(ctx context.Context, msg Message) error
}

// ErrNoURL is returned when the sink has no destination configured.
var ErrNoURL = errors.New("webhook: no destination URL")

// Client posts messages to a single webhook URL.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a Client for url. A nil httpClient uses http.DefaultClient.
func NewClient(url string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{url: url, httpClient: httpClient, logger: logger}
}

// Post sends msg as {username, icon_emoji, blocks}. The library payload type
// also always serializes replace_original and delete_original as false;
// incoming webhooks ignore both. Any non-2xx response is an error.
func (c *Client) Post(ctx context.Context, msg Message) error {
	if c.url == "" {
		return ErrNoURL
	}
	payload := &slack.WebhookMessage{
		Username:  msg.Username,
		IconEmoji: msg.IconEmoji,
		Blocks:    &slack.Blocks{BlockSet: msg.Blocks},
	}
	err := slack.PostWebhookCustomHTTPContext(ctx, c.url, c.httpClient, payload)
	metrics.ObserveWebhookPost(err)
	if err != nil {
		c.logger.Warn("webhook post failed", zap.String("username", msg.Username), zap.Error(err))
		return fmt.Errorf("post webhook: %w", err)
	}
	c.logger.Debug("webhook posted", zap.String("username", msg.Username), zap.Int("blocks", len(msg.Blocks)))
	return nil
}

// Recorder keeps posted messages in memory. It is used by tests and by the
// post command's dry-run mode.
type Recorder struct {
	Messages []Message
	Err      error
}

// Post records msg, or returns Err when set.
func (r *Recorder) Post(_ context.Context, msg Message) error {
	if r.Err != nil {
		return r.Err
	}
	r.Messages = append(r.Messages, msg)
	return nil
}
