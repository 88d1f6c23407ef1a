// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/notifier"
)

const defaultTimeout = 30 * time.Second

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier. An empty name means "webhook".
func New(name, url string, headers map[string]string) *Webhook {
	if name == "" {
		name = "webhook"
	}
	return &Webhook{
		name:    name,
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (w *Webhook) Name() string { return w.name }

func (w *Webhook) Init(cfg notifier.Config) error {
	if cfg.URL != "" {
		w.url = cfg.URL
	}
	if cfg.Headers != nil {
		w.headers = cfg.Headers
	}
	if w.name == "" {
		w.name = "webhook"
	}

	if w.url == "" {
		return core.Errorf(core.ErrConfigMissing, "webhook: url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	w.client = &http.Client{Timeout: timeout}

	return nil
}

func (w *Webhook) Send(ctx context.Context, event notifier.Event) error {
	payload := map[string]any{
		"type":       event.Kind,
		"run_id":     event.RunID,
		"title":      event.Title,
		"text":       event.Text,
		"location":   event.Location,
		"summary":    event.Summary,
		"created_at": event.CreatedAt.UTC().Format(time.RFC3339),
	}
	return w.post(ctx, payload)
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrNotifierFailed, fmt.Errorf("webhook: request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return core.Errorf(core.ErrNotifierFailed, "webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
