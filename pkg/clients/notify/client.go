// Package notify posts operational notifications (follow-up digests, close
// reminders) to a configured incoming-webhook endpoint.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ndiasse/stockroom/internal/config"
)

// Client exposes the notification operations used by the scheduler.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a simple webhook payload.
type Message struct {
	Channel string `json:"channel,omitempty"`
	Title   string `json:"title"`
	Body    string `json:"text"`
}

// WebhookClient is a resty-backed implementation of Client.
type WebhookClient struct {
	httpClient *resty.Client
	channel    string
}

// NewClient builds a webhook client from configuration.
func NewClient(cfg config.NotifyConfig) *WebhookClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(cfg.WebhookURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &WebhookClient{
		httpClient: restyClient,
		channel:    cfg.Channel,
	}
}

// Send posts the message to the webhook.
func (c *WebhookClient) Send(ctx context.Context, msg Message) error {
	if msg.Channel == "" {
		msg.Channel = c.channel
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		Post("")
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("notification webhook error: status=%d body=%s", resp.StatusCode(), resp.String())
	}

	return nil
}
