package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/notifier"
)

func TestEmail_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Email)(nil)
}

func TestEmail_Name(t *testing.T) {
	e := New("smtp.example.com", 587, "", "", "from@example.com", []string{"to@example.com"})
	if e.Name() != "email" {
		t.Errorf("expected 'email', got %s", e.Name())
	}
}

func TestEmail_Init_RequiredFields(t *testing.T) {
	e := &Email{}
	err := e.Init(notifier.Config{Params: map[string]any{}})
	if !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
}

func TestEmail_Init_WithConfig(t *testing.T) {
	e := &Email{}
	err := e.Init(notifier.Config{
		Params: map[string]any{
			"host": "smtp.example.com",
			"from": "frontier@example.com",
			"to":   []any{"user@example.com", "ops@example.com"},
		},
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if e.host != "smtp.example.com" {
		t.Errorf("expected host smtp.example.com, got %s", e.host)
	}
	if e.port != 587 {
		t.Errorf("expected default port 587, got %d", e.port)
	}
	if len(e.to) != 2 {
		t.Errorf("expected 2 recipients, got %v", e.to)
	}
}

func TestEmail_Send(t *testing.T) {
	var gotAddr string
	var gotTo []string
	var gotMsg string

	e := New("smtp.example.com", 2525, "", "", "frontier@example.com", []string{"a@example.com", "b@example.com"})
	e.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	event := notifier.Event{
		Kind:      notifier.KindFrontier,
		RunID:     "run-9",
		CreatedAt: time.Date(2024, 6, 30, 18, 0, 0, 0, time.UTC),
		Title:     "Frontier run finished",
		Text:      "Minimum variance: 9.80% vol",
		Location:  "runs/2024/06/run-9",
	}
	if err := e.Send(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAddr != "smtp.example.com:2525" {
		t.Errorf("unexpected addr %s", gotAddr)
	}
	if len(gotTo) != 2 {
		t.Errorf("expected 2 recipients, got %v", gotTo)
	}
	for _, want := range []string{
		"Subject: [frontier] Frontier run finished",
		"To: a@example.com,b@example.com",
		"Minimum variance: 9.80% vol",
		"Run: run-9",
		"Archive: runs/2024/06/run-9",
		"Time: 2024-06-30 18:00:00",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("expected message to contain %q", want)
		}
	}
}

func TestEmail_Send_Failure(t *testing.T) {
	e := New("smtp.example.com", 25, "", "", "f@example.com", []string{"t@example.com"})
	e.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := e.Send(context.Background(), notifier.Event{Title: "x"})
	if !errors.Is(err, core.ErrNotifierFailed) {
		t.Errorf("expected ErrNotifierFailed, got %v", err)
	}
}

func TestEmail_Send_CancelledContext(t *testing.T) {
	called := false
	e := New("smtp.example.com", 25, "", "", "f@example.com", []string{"t@example.com"})
	e.send = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Send(ctx, notifier.Event{Title: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("expected no mail to be sent")
	}
}
