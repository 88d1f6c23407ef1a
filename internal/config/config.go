package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/frontier/internal/core"
	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

type Config struct {
	Server     ServerConfig               `mapstructure:"server"`
	Storage    StorageConfig              `mapstructure:"storage"`
	Collectors map[string]CollectorConfig `mapstructure:"collectors"`
	Indices    []IndexConfig              `mapstructure:"indices"`
	Portfolio  PortfolioConfig            `mapstructure:"portfolio"`
	Simulation SimulationConfig           `mapstructure:"simulation"`
	SML        SMLConfig                  `mapstructure:"sml"`
	Indicators IndicatorsConfig           `mapstructure:"indicators"`
	Report     ReportConfig               `mapstructure:"report"`
	LLM        LLMConfig                  `mapstructure:"llm"`
	Notifiers  map[string]NotifierConfig  `mapstructure:"notifiers"`
	Metrics    MetricsConfig              `mapstructure:"metrics"`
	Log        LogConfig                  `mapstructure:"log"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Mode        string `mapstructure:"mode"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

type StorageConfig struct {
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
}

// WarehouseConfig points at the SQLite price warehouse.
type WarehouseConfig struct {
	Path string `mapstructure:"path"`
}

type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type CollectorConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Interval       string `mapstructure:"interval"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Concurrency    int    `mapstructure:"concurrency"`
	Fundamentals   bool   `mapstructure:"fundamentals"` // also snapshot profile, ratios and ESG
	SummaryURL     string `mapstructure:"summary_url"`
}

// IndexConfig maps a market index name as stored in the warehouse to the
// symbol the collector fetches it by, e.g. "IBEX 35" -> "^IBEX".
type IndexConfig struct {
	Name   string `mapstructure:"name"`
	Symbol string `mapstructure:"symbol"`
}

// PortfolioConfig is the default asset universe and date range.
type PortfolioConfig struct {
	Symbols     []string `mapstructure:"symbols"`
	From        string   `mapstructure:"from"`
	To          string   `mapstructure:"to"`
	ReturnKind  string   `mapstructure:"return_kind"`
	FillForward bool     `mapstructure:"fill_forward"`
}

type SimulationConfig struct {
	Trials         int     `mapstructure:"trials"`
	PeriodsPerYear int     `mapstructure:"periods_per_year"`
	RiskFreeRate   float64 `mapstructure:"risk_free_rate"`
	Sampler        string  `mapstructure:"sampler"` // "uniform" or "dirichlet"
	Workers        int     `mapstructure:"workers"` // 0 = sequential
	Seed           uint64  `mapstructure:"seed"`    // 0 = random per run
}

type SMLConfig struct {
	Market       string  `mapstructure:"market"`
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
	MinYears     int     `mapstructure:"min_years"`
}

// IndicatorsConfig sets the technical indicator windows.
type IndicatorsConfig struct {
	SMAPeriods      []int   `mapstructure:"sma_periods"`
	RSIPeriod       int     `mapstructure:"rsi_period"`
	MACDFast        int     `mapstructure:"macd_fast"`
	MACDSlow        int     `mapstructure:"macd_slow"`
	MACDSignal      int     `mapstructure:"macd_signal"`
	MFIPeriod       int     `mapstructure:"mfi_period"`
	StochK          int     `mapstructure:"stoch_k"`
	StochD          int     `mapstructure:"stoch_d"`
	BollingerPeriod int     `mapstructure:"bollinger_period"`
	BollingerWidth  float64 `mapstructure:"bollinger_width"`
}

type ReportConfig struct {
	CompositionThreshold float64 `mapstructure:"composition_threshold"`
	ChartWidth           int     `mapstructure:"chart_width"`
	ChartHeight          int     `mapstructure:"chart_height"`
	Commentary           bool    `mapstructure:"commentary"`
}

// NotifierConfig configures one notifier. Type is webhook (default),
// telegram or email; telegram and email read their settings from Params.
type NotifierConfig struct {
	Type           string            `mapstructure:"type"`
	Enabled        bool              `mapstructure:"enabled"`
	URL            string            `mapstructure:"url"`
	Headers        map[string]string `mapstructure:"headers"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds"`
	Params         map[string]any    `mapstructure:"params"`
}

// Kind returns the notifier type, defaulting to webhook.
func (n NotifierConfig) Kind() string {
	if n.Type == "" {
		return "webhook"
	}
	return n.Type
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file on top of Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Mode:        "release",
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Storage: StorageConfig{
			Warehouse: WarehouseConfig{
				Path: "frontier.db",
			},
			Archive: ArchiveConfig{
				Type: "localfs",
				Path: "archive",
			},
		},
		Collectors: map[string]CollectorConfig{
			"yahoo": {Enabled: true, Interval: "1d", TimeoutSeconds: 10, Concurrency: 4},
		},
		Indices: []IndexConfig{
			{Name: "IBEX 35", Symbol: "^IBEX"},
		},
		Portfolio: PortfolioConfig{
			From:       "2020-01-01",
			To:         "2024-12-31",
			ReturnKind: string(core.ReturnSimple),
		},
		Simulation: SimulationConfig{
			Trials:         50000,
			PeriodsPerYear: 252,
			RiskFreeRate:   0.03,
			Sampler:        "uniform",
		},
		SML: SMLConfig{
			Market:       "IBEX 35",
			RiskFreeRate: 0.03,
			MinYears:     3,
		},
		Indicators: IndicatorsConfig{
			SMAPeriods:      []int{20, 50, 200},
			RSIPeriod:       14,
			MACDFast:        12,
			MACDSlow:        26,
			MACDSignal:      9,
			MFIPeriod:       14,
			StochK:          14,
			StochD:          3,
			BollingerPeriod: 20,
			BollingerWidth:  2,
		},
		Report: ReportConfig{
			CompositionThreshold: 0.005,
			ChartWidth:           900,
			ChartHeight:          600,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Range parses the configured date range.
func (p PortfolioConfig) Range() (from, to time.Time, err error) {
	return ParseRange(p.From, p.To)
}

// ParseRange parses a YYYY-MM-DD range. An empty to means today.
func ParseRange(fromStr, toStr string) (from, to time.Time, err error) {
	from, err = time.Parse(dateLayout, fromStr)
	if err != nil {
		return from, to, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("from: %w", err))
	}
	if toStr == "" {
		to = core.Day(time.Now())
	} else if to, err = time.Parse(dateLayout, toStr); err != nil {
		return from, to, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("to: %w", err))
	}
	if to.Before(from) {
		return from, to, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("range ends before it starts: %s > %s", fromStr, toStr))
	}
	return from, to, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Simulation validation
	if c.Simulation.Trials < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("simulation.trials must be positive, got %d", c.Simulation.Trials))
	}
	if c.Simulation.PeriodsPerYear < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("simulation.periods_per_year must be positive, got %d", c.Simulation.PeriodsPerYear))
	}
	if c.Simulation.Workers < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("simulation.workers cannot be negative, got %d", c.Simulation.Workers))
	}
	switch c.Simulation.Sampler {
	case "", "uniform", "dirichlet":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown simulation.sampler %q", c.Simulation.Sampler))
	}

	// Portfolio validation
	if c.Portfolio.ReturnKind != "" && !core.ReturnKind(c.Portfolio.ReturnKind).Valid() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown portfolio.return_kind %q", c.Portfolio.ReturnKind))
	}
	if c.Portfolio.From != "" {
		if _, _, err := c.Portfolio.Range(); err != nil {
			return err
		}
	}

	// SML validation
	if c.SML.MinYears < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("sml.min_years cannot be negative, got %d", c.SML.MinYears))
	}

	// Indicators validation
	if c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("indicators.macd_fast must be below macd_slow, got %d >= %d",
				c.Indicators.MACDFast, c.Indicators.MACDSlow))
	}

	// Report validation
	if c.Report.CompositionThreshold < 0 || c.Report.CompositionThreshold >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("report.composition_threshold must be in [0, 1), got %f", c.Report.CompositionThreshold))
	}

	// Archive validation
	if c.Storage.Archive.Enabled {
		switch c.Storage.Archive.Type {
		case "", "localfs":
			if c.Storage.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("storage.archive.path required for localfs"))
			}
		case "s3":
			if c.Storage.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("storage.archive.s3.bucket required for s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown storage.archive.type %q", c.Storage.Archive.Type))
		}
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
		}
	}

	switch c.Log.Format {
	case "", "json", "console":
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	// Notifier validation
	for name, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		switch n.Kind() {
		case "webhook":
			if n.URL == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("notifiers.%s.url required when enabled", name))
			}
		case "telegram", "email":
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("notifiers.%s: unknown type %q", name, n.Type))
		}
	}

	return nil
}
