package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/frontier/internal/collector"
	"github.com/newthinker/frontier/internal/collector/yahoo"
	"github.com/newthinker/frontier/internal/config"
	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/llm/factory"
	"github.com/newthinker/frontier/internal/metrics"
	"github.com/newthinker/frontier/internal/notifier"
	"github.com/newthinker/frontier/internal/notifier/email"
	"github.com/newthinker/frontier/internal/notifier/telegram"
	"github.com/newthinker/frontier/internal/notifier/webhook"
	"github.com/newthinker/frontier/internal/storage/archive"
	"github.com/newthinker/frontier/internal/storage/warehouse"
)

// Bootstrap opens the warehouse and wires every configured component into a
// new Analyzer. The returned close function releases the warehouse.
func Bootstrap(cfg *config.Config, log *zap.Logger, reg *metrics.Registry) (*Analyzer, func() error, error) {
	store, err := warehouse.Open(cfg.Storage.Warehouse.Path, log)
	if err != nil {
		return nil, nil, fmt.Errorf("opening warehouse: %w", err)
	}

	a := New(cfg, store, log)
	if reg != nil {
		a.SetMetrics(reg)
	}

	if err := a.wire(); err != nil {
		store.Close()
		return nil, nil, err
	}
	return a, store.Close, nil
}

func (a *Analyzer) wire() error {
	for name, cc := range a.cfg.Collectors {
		if !cc.Enabled {
			continue
		}
		var c collector.Collector
		switch name {
		case "yahoo":
			c = yahoo.New()
		default:
			a.logger.Warn("unknown collector ignored", zap.String("collector", name))
			continue
		}
		if err := c.Init(collector.Config{
			Enabled:  cc.Enabled,
			Interval: cc.Interval,
			Timeout:  time.Duration(cc.TimeoutSeconds) * time.Second,
			BaseURL:  cc.BaseURL,
			Extra:    map[string]any{"summary_url": cc.SummaryURL},
		}); err != nil {
			return fmt.Errorf("collector %s: %w", name, err)
		}
		a.RegisterCollector(c)
	}

	if ac := a.cfg.Storage.Archive; ac.Enabled {
		store, err := archive.New(archive.Config{
			Type: ac.Type,
			Path: ac.Path,
			S3: archive.S3Config{
				Bucket:    ac.S3.Bucket,
				Endpoint:  ac.S3.Endpoint,
				Region:    ac.S3.Region,
				AccessKey: ac.S3.AccessKey,
				SecretKey: ac.S3.SecretKey,
				Prefix:    ac.S3.Prefix,
			},
		})
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		a.SetArchive(archive.NewRuns(store))
	}

	provider, err := factory.New(a.cfg.LLM)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if provider != nil {
		a.SetLLM(provider)
	}

	for name, nc := range a.cfg.Notifiers {
		if !nc.Enabled {
			continue
		}
		n, err := buildNotifier(name, nc)
		if err != nil {
			return fmt.Errorf("notifier %s: %w", name, err)
		}
		if err := a.RegisterNotifier(n); err != nil {
			return err
		}
	}
	return nil
}

func buildNotifier(name string, nc config.NotifierConfig) (notifier.Notifier, error) {
	var n notifier.Notifier
	switch nc.Kind() {
	case "webhook":
		n = webhook.New(name, nc.URL, nc.Headers)
	case "telegram":
		n = telegram.New("", "")
	case "email":
		n = email.New("", 0, "", "", "", nil)
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown notifier type %q", nc.Type)
	}
	err := n.Init(notifier.Config{
		Type:    nc.Kind(),
		URL:     nc.URL,
		Headers: nc.Headers,
		Timeout: time.Duration(nc.TimeoutSeconds) * time.Second,
		Params:  nc.Params,
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}
