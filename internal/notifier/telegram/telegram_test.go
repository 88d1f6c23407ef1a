package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/notifier"
)

func TestTelegram_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Telegram)(nil)
}

func TestTelegram_Name(t *testing.T) {
	tg := New("token", "chatid")
	if tg.Name() != "telegram" {
		t.Errorf("expected 'telegram', got '%s'", tg.Name())
	}
}

func TestTelegram_Init(t *testing.T) {
	tg := &Telegram{}

	cfg := notifier.Config{
		Params: map[string]any{
			"bot_token": "test-token",
			"chat_id":   int64(-1001234),
		},
	}

	err := tg.Init(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tg.botToken != "test-token" {
		t.Errorf("expected bot_token 'test-token', got '%s'", tg.botToken)
	}
	if tg.chatID != "-1001234" {
		t.Errorf("expected chat_id '-1001234', got '%s'", tg.chatID)
	}
	if tg.apiURL != defaultAPIURL {
		t.Errorf("expected default api url, got %s", tg.apiURL)
	}
}

func TestTelegram_Init_Missing(t *testing.T) {
	tests := map[string]map[string]any{
		"missing token":   {"chat_id": "test-chat"},
		"missing chat id": {"bot_token": "test-token"},
	}
	for name, params := range tests {
		t.Run(name, func(t *testing.T) {
			err := (&Telegram{}).Init(notifier.Config{Params: params})
			if !errors.Is(err, core.ErrConfigMissing) {
				t.Errorf("expected ErrConfigMissing, got %v", err)
			}
		})
	}
}

func TestTelegram_Send(t *testing.T) {
	var receivedPayload map[string]any
	var receivedPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&receivedPayload)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tg := &Telegram{}
	err := tg.Init(notifier.Config{
		URL:    server.URL + "/",
		Params: map[string]any{"bot_token": "tok", "chat_id": "42"},
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	event := notifier.Event{
		Kind:      notifier.KindFrontier,
		RunID:     "run-7",
		CreatedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Title:     "Frontier run finished",
		Text:      "Max Sharpe: 1.20",
		Location:  "runs/2024/03/run-7",
	}
	if err := tg.Send(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedPath != "/bottok/sendMessage" {
		t.Errorf("unexpected path %s", receivedPath)
	}
	if receivedPayload["chat_id"] != "42" {
		t.Errorf("expected chat_id '42', got %v", receivedPayload["chat_id"])
	}
	text, _ := receivedPayload["text"].(string)
	for _, want := range []string{"*Frontier run finished*", "Max Sharpe: 1.20", "runs/2024/03/run-7", "run-7", "2024-03-01 09:30:00"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected message to contain %q, got %q", want, text)
		}
	}
}

func TestTelegram_Send_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	tg := New("bad", "42")
	tg.apiURL = server.URL

	err := tg.Send(context.Background(), notifier.Event{Kind: notifier.KindSML, Title: "SML"})
	if !errors.Is(err, core.ErrNotifierFailed) {
		t.Errorf("expected ErrNotifierFailed, got %v", err)
	}
}

func TestFormatEvent_SMLIcon(t *testing.T) {
	msg := formatEvent(notifier.Event{Kind: notifier.KindSML, Title: "SML analysis"})
	if !strings.HasPrefix(msg, "📐") {
		t.Errorf("expected SML icon, got %q", msg)
	}
}
