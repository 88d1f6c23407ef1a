// Package telegram posts run notifications through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/notifier"
)

const defaultAPIURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiURL   string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   defaultAPIURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

// Init reads bot_token and chat_id from Params. cfg.URL overrides the API base.
func (t *Telegram) Init(cfg notifier.Config) error {
	if token := notifier.ParamString(cfg.Params, "bot_token"); token != "" {
		t.botToken = token
	}
	if chatID := notifier.ParamString(cfg.Params, "chat_id"); chatID != "" {
		t.chatID = chatID
	}
	if cfg.URL != "" {
		t.apiURL = strings.TrimRight(cfg.URL, "/")
	}
	if t.apiURL == "" {
		t.apiURL = defaultAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	t.client = &http.Client{Timeout: timeout}

	if t.botToken == "" {
		return core.Errorf(core.ErrConfigMissing, "telegram: bot_token is required")
	}
	if t.chatID == "" {
		return core.Errorf(core.ErrConfigMissing, "telegram: chat_id is required")
	}

	return nil
}

func (t *Telegram) Send(ctx context.Context, event notifier.Event) error {
	return t.sendMessage(ctx, formatEvent(event))
}

func formatEvent(event notifier.Event) string {
	var sb strings.Builder

	icon := "📈"
	if event.Kind == notifier.KindSML {
		icon = "📐"
	}

	sb.WriteString(fmt.Sprintf("%s *%s*\n", icon, event.Title))
	if event.Text != "" {
		sb.WriteString("\n")
		sb.WriteString(event.Text)
		sb.WriteString("\n")
	}
	if event.Location != "" {
		sb.WriteString(fmt.Sprintf("\n📁 %s\n", event.Location))
	}
	sb.WriteString(fmt.Sprintf("🆔 %s\n", event.RunID))
	sb.WriteString(fmt.Sprintf("⏰ %s", event.CreatedAt.Format("2006-01-02 15:04:05")))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrNotifierFailed, fmt.Errorf("telegram: failed to send message: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return core.Errorf(core.ErrNotifierFailed, "telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
