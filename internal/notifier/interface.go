package notifier

import (
	"context"
	"time"
)

// Config holds notifier configuration
type Config struct {
	Type    string
	URL     string
	Headers map[string]string
	Timeout time.Duration
	Params  map[string]any
}

// Event kinds.
const (
	KindFrontier   = "frontier"
	KindSML        = "sml"
	KindIndicators = "indicators"
)

// Event describes a finished run.
type Event struct {
	Kind      string    `json:"kind"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Location  string    `json:"location,omitempty"`
	Summary   any       `json:"summary,omitempty"`
}

// Notifier defines the interface for run notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers one event
	Send(ctx context.Context, event Event) error
}
