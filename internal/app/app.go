package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/frontier/internal/collector"
	"github.com/newthinker/frontier/internal/config"
	"github.com/newthinker/frontier/internal/llm"
	"github.com/newthinker/frontier/internal/logger"
	"github.com/newthinker/frontier/internal/metrics"
	"github.com/newthinker/frontier/internal/notifier"
	"github.com/newthinker/frontier/internal/storage/archive"
	"github.com/newthinker/frontier/internal/storage/warehouse"
)

// Analyzer is the main application orchestrator. It loads prices from the
// warehouse, runs simulations and SML analyses, archives the artifacts and
// notifies subscribers.
type Analyzer struct {
	cfg        *config.Config
	logger     *zap.Logger
	warehouse  *warehouse.Store
	collectors *collector.Registry
	notifiers  *notifier.Registry

	mu      sync.RWMutex
	runs    *archive.Runs
	llm     llm.Provider
	metrics *metrics.Registry
	stats   Stats

	now   func() time.Time
	newID func() string
}

// Stats counts work done since start.
type Stats struct {
	Simulations int       `json:"simulations"`
	Analyses    int       `json:"sml_analyses"`
	Indicators  int       `json:"indicator_runs"`
	Fetches     int       `json:"fetches"`
	Failures    int       `json:"failures"`
	LastRunID   string    `json:"last_run_id,omitempty"`
	LastRunAt   time.Time `json:"last_run_at,omitempty"`
}

// New creates a new Analyzer. A nil cfg means config.Defaults().
func New(cfg *config.Config, store *warehouse.Store, log *zap.Logger) *Analyzer {
	if cfg == nil {
		cfg = config.Defaults()
	}
	return &Analyzer{
		cfg:        cfg,
		logger:     logger.OrNop(log),
		warehouse:  store,
		collectors: collector.NewRegistry(),
		notifiers:  notifier.NewRegistry(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// RegisterCollector adds a collector to the analyzer. A collector whose
// config section says enabled: false stays registered but is never picked.
func (a *Analyzer) RegisterCollector(c collector.Collector) {
	a.collectors.Register(c)
	if cc, ok := a.cfg.Collectors[c.Name()]; ok && !cc.Enabled {
		a.collectors.SetEnabled(c.Name(), false)
	}
}

// RegisterNotifier adds a notifier to the analyzer
func (a *Analyzer) RegisterNotifier(n notifier.Notifier) error {
	return a.notifiers.Register(n)
}

// SetArchive enables artifact archiving.
func (a *Analyzer) SetArchive(runs *archive.Runs) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs = runs
}

// SetLLM sets the provider used for commentary.
func (a *Analyzer) SetLLM(p llm.Provider) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.llm = p
}

// SetMetrics sets the registry domain metrics are recorded on.
func (a *Analyzer) SetMetrics(reg *metrics.Registry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metrics = reg
}

// Config returns the configuration the analyzer was built with.
func (a *Analyzer) Config() *config.Config {
	return a.cfg
}

// Archive returns the run archive, or nil when archiving is disabled.
func (a *Analyzer) Archive() *archive.Runs {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.runs
}

// GetStats returns application statistics
func (a *Analyzer) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"stats":      a.stats,
		"collectors": a.collectors.Names(),
		"notifiers":  a.notifiers.Len(),
		"archive":    a.runs != nil,
		"llm":        a.llm != nil,
	}
}

func (a *Analyzer) deps() (*archive.Runs, llm.Provider, *metrics.Registry) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.runs, a.llm, a.metrics
}

func (a *Analyzer) record(update func(s *Stats)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	update(&a.stats)
}
