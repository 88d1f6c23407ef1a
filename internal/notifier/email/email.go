// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/notifier"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     sendFunc
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Init(cfg notifier.Config) error {
	if host := notifier.ParamString(cfg.Params, "host"); host != "" {
		e.host = host
	}
	if port, ok := notifier.ParamInt(cfg.Params, "port"); ok {
		e.port = port
	}
	if username := notifier.ParamString(cfg.Params, "username"); username != "" {
		e.username = username
	}
	if password := notifier.ParamString(cfg.Params, "password"); password != "" {
		e.password = password
	}
	if from := notifier.ParamString(cfg.Params, "from"); from != "" {
		e.from = from
	}
	if to := notifier.ParamStrings(cfg.Params, "to"); len(to) > 0 {
		e.to = to
	}
	if e.port == 0 {
		e.port = 587
	}
	if e.send == nil {
		e.send = smtp.SendMail
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return core.Errorf(core.ErrConfigMissing, "email: host, from, and to are required")
	}
	return nil
}

// Send delivers the event as a plain text mail. net/smtp has no context
// support so ctx is only checked before dialing.
func (e *Email) Send(ctx context.Context, event notifier.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := fmt.Sprintf("[frontier] %s", event.Title)
	if err := e.sendEmail(subject, formatEvent(event)); err != nil {
		return core.WrapError(core.ErrNotifierFailed, fmt.Errorf("email: %w", err))
	}
	return nil
}

func formatEvent(event notifier.Event) string {
	var sb strings.Builder
	sb.WriteString(event.Title)
	sb.WriteString("\n\n")
	if event.Text != "" {
		sb.WriteString(event.Text)
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("Run: %s\n", event.RunID))
	if event.Location != "" {
		sb.WriteString(fmt.Sprintf("Archive: %s\n", event.Location))
	}
	sb.WriteString(fmt.Sprintf("Time: %s\n", event.CreatedAt.Format("2006-01-02 15:04:05")))
	return sb.String()
}

func (e *Email) sendEmail(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		body,
	)

	return e.send(addr, auth, e.from, e.to, []byte(msg))
}
