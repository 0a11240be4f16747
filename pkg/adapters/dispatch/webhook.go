// Package dispatch delivers routed user messages to the workflow orchestrator.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/surface/internal/logging"
	"github.com/aretw0/surface/pkg/ports"
)

// DefaultTimeout bounds one webhook delivery.
const DefaultTimeout = 5 * time.Second

// ErrRejected is returned when the webhook answers with a non-2xx status.
var ErrRejected = errors.New("webhook rejected trigger")

// Webhook posts every trigger as JSON to a fixed URL. It implements ports.TriggerDispatcher.
type Webhook struct {
	url     string
	client  *http.Client
	headers map[string]string
	logger  *slog.Logger
}

// Option configures the Webhook.
type Option func(*Webhook)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

// WithTimeout sets the delivery timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(w *Webhook) {
		if d > 0 {
			w.client.Timeout = d
		}
	}
}

// WithHeader adds a header to every delivery.
func WithHeader(key, value string) Option {
	return func(w *Webhook) {
		w.headers[key] = value
	}
}

// WithLogger configures a logger for the Webhook.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Webhook) {
		w.logger = logger
	}
}

// NewWebhook creates a dispatcher posting to url.
func NewWebhook(url string, opts ...Option) *Webhook {
	w := &Webhook{
		url:     url,
		client:  &http.Client{Timeout: DefaultTimeout},
		headers: make(map[string]string),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dispatch posts the trigger. Any 2xx answer is a success.
func (w *Webhook) Dispatch(ctx context.Context, t ports.Trigger) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("could not marshal trigger: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(msg))
	}

	w.logger.Debug("Trigger delivered",
		"trigger_node", t.TriggerNode,
		"chat_id", t.ChatID,
		"focused", t.Focused,
	)
	return nil
}
