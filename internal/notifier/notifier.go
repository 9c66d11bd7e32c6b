// Package notifier delivers human-readable alerts to Discord webhooks.
// Delivery is best-effort: one attempt per endpoint with a bounded timeout,
// no retries. The control loop records the outcome and moves on.
package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const webhookPrefix = "https://discord.com/api/webhooks/"

// Sink is the delivery interface consumed by the rule evaluator
type Sink interface {
	Send(ctx context.Context, webhookURL, content string) error
}

type DiscordNotifier struct {
	client *resty.Client
}

func NewDiscordNotifier(timeout time.Duration) *DiscordNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0)

	return &DiscordNotifier{client: client}
}

// Send posts content to a Discord webhook. URLs outside the Discord webhook
// namespace are rejected without a network call.
func (n *DiscordNotifier) Send(ctx context.Context, webhookURL, content string) error {
	url := strings.TrimSpace(webhookURL)
	if !strings.HasPrefix(url, webhookPrefix) {
		return fmt.Errorf("not a discord webhook url")
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"content": content}).
		Post(url)
	if err != nil {
		return fmt.Errorf("discord send failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("discord send failed: status %d", resp.StatusCode())
	}
	return nil
}
