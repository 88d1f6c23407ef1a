package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/notifier"
)

func TestWebhook_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Webhook)(nil)
}

func TestWebhook_Name(t *testing.T) {
	if got := New("", "http://example.com/hook", nil).Name(); got != "webhook" {
		t.Errorf("expected 'webhook', got %s", got)
	}
	if got := New("n8n", "http://example.com/hook", nil).Name(); got != "n8n" {
		t.Errorf("expected 'n8n', got %s", got)
	}
}

func TestWebhook_Init_RequiresURL(t *testing.T) {
	w := &Webhook{}
	err := w.Init(notifier.Config{})
	if !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
}

func TestWebhook_Init_WithURL(t *testing.T) {
	w := &Webhook{}
	err := w.Init(notifier.Config{URL: "http://example.com/hook", Timeout: 5 * time.Second})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if w.url != "http://example.com/hook" {
		t.Errorf("expected url, got %s", w.url)
	}
	if w.client.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", w.client.Timeout)
	}
}

func TestWebhook_Send(t *testing.T) {
	var receivedPayload map[string]any
	var receivedHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeader = r.Header.Get("X-Token")
		json.NewDecoder(r.Body).Decode(&receivedPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := New("n8n", server.URL, map[string]string{"X-Token": "secret"})

	event := notifier.Event{
		Kind:      notifier.KindFrontier,
		RunID:     "run-42",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Title:     "Frontier run finished",
		Text:      "Max Sharpe: 1.20",
		Location:  "runs/2024/05/run-42",
		Summary:   map[string]any{"trials": 100},
	}
	if err := w.Send(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedHeader != "secret" {
		t.Errorf("expected custom header, got %q", receivedHeader)
	}
	if receivedPayload["type"] != "frontier" {
		t.Errorf("expected type 'frontier', got %v", receivedPayload["type"])
	}
	if receivedPayload["run_id"] != "run-42" {
		t.Errorf("expected run_id 'run-42', got %v", receivedPayload["run_id"])
	}
	if receivedPayload["created_at"] != "2024-05-01T12:00:00Z" {
		t.Errorf("unexpected created_at %v", receivedPayload["created_at"])
	}
	summary, ok := receivedPayload["summary"].(map[string]any)
	if !ok || summary["trials"].(float64) != 100 {
		t.Errorf("expected summary to be embedded, got %v", receivedPayload["summary"])
	}
}

func TestWebhook_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w := New("", server.URL, nil)
	err := w.Send(context.Background(), notifier.Event{Kind: notifier.KindSML})
	if !errors.Is(err, core.ErrNotifierFailed) {
		t.Errorf("expected ErrNotifierFailed, got %v", err)
	}
}
