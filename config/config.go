// Package config assembles the full runtime configuration from YAML or
// JSON, with defaults that match a standard NIFTY weekly-options
// session.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quantrail/intrabot/feed"
	"github.com/quantrail/intrabot/regime"
	"github.com/quantrail/intrabot/risk"
	"github.com/quantrail/intrabot/session"
	"github.com/quantrail/intrabot/signal"
)

type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Instrument InstrumentConfig `json:"instrument" yaml:"instrument"`
	Feed       FeedConfig       `json:"feed" yaml:"feed"`
	Regime     regime.Config    `json:"regime" yaml:"regime"`
	Signal     signal.Config    `json:"signal" yaml:"signal"`
	Risk       risk.Limits      `json:"risk" yaml:"risk"`
	Engine     session.Config   `json:"engine" yaml:"engine"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
}

// AccountConfig sets the session's working capital and day boundaries.
type AccountConfig struct {
	Capital float64 `json:"capital" yaml:"capital"`

	// SquareOffBefore is how long before market close the forced EOD
	// exit fires, e.g. "20m".
	SquareOffBefore string `json:"square_off_before" yaml:"square_off_before"`

	// RiskStatePath is the SQLite file holding governor state across
	// restarts.
	RiskStatePath string `json:"risk_state_path" yaml:"risk_state_path"`
}

// InstrumentConfig locates the authoritative instrument dump.
type InstrumentConfig struct {
	Underlying string `json:"underlying" yaml:"underlying"`
	StrikeStep int    `json:"strike_step" yaml:"strike_step"`

	// ChainPath is the broker's instrument CSV export. Contract
	// symbols are resolved from it, never constructed.
	ChainPath string `json:"chain_path" yaml:"chain_path"`
}

// FeedConfig selects the data source: a recorded candle file for
// replay, or a stream URL for live.
type FeedConfig struct {
	Mode string `json:"mode" yaml:"mode"` // "replay" or "live"

	CandleFile string `json:"candle_file,omitempty" yaml:"candle_file,omitempty"`

	URL        string `json:"url,omitempty" yaml:"url,omitempty"`
	Interval   string `json:"interval,omitempty" yaml:"interval,omitempty"`
	StaleAfter string `json:"stale_after,omitempty" yaml:"stale_after,omitempty"`

	Indicators feed.IndicatorConfig `json:"indicators" yaml:"indicators"`
}

// JournalConfig selects the audit-trail backend.
type JournalConfig struct {
	Type        string `json:"type" yaml:"type"` // "sqlite" or "csv"
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	SignalsFile string `json:"signals_file,omitempty" yaml:"signals_file,omitempty"`
	TradesFile  string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
}

type MetricsConfig struct {
	// Addr serves /metrics when non-empty, e.g. ":9104".
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Capital:         100000,
			SquareOffBefore: "20m",
			RiskStatePath:   "risk_state.db",
		},
		Instrument: InstrumentConfig{
			Underlying: "NIFTY",
			StrikeStep: 50,
			ChainPath:  "instruments.csv",
		},
		Feed: FeedConfig{
			Mode:       "replay",
			Interval:   "5m",
			StaleAfter: "90s",
			Indicators: feed.DefaultIndicatorConfig(),
		},
		Regime:  regime.DefaultConfig(),
		Signal:  signal.DefaultConfig(),
		Risk:    risk.DefaultLimits(),
		Engine:  session.DefaultConfig(),
		Journal: JournalConfig{Type: "sqlite", DBPath: "journal.db"},
	}
}

// LoadFromFile reads YAML or JSON config over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Account.Capital <= 0 {
		return fmt.Errorf("account.capital must be positive")
	}
	if _, err := c.SquareOffBefore(); err != nil {
		return fmt.Errorf("account.square_off_before: %w", err)
	}
	if c.Instrument.Underlying == "" {
		return fmt.Errorf("instrument.underlying is required")
	}
	if c.Instrument.ChainPath == "" {
		return fmt.Errorf("instrument.chain_path is required")
	}

	switch strings.ToLower(c.Feed.Mode) {
	case "replay":
		if c.Feed.CandleFile == "" {
			return fmt.Errorf("feed.candle_file is required in replay mode")
		}
	case "live":
		if c.Feed.URL == "" {
			return fmt.Errorf("feed.url is required in live mode")
		}
	default:
		return fmt.Errorf("feed.mode must be replay or live, got %q", c.Feed.Mode)
	}

	switch strings.ToLower(c.Journal.Type) {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path is required for sqlite journal")
		}
	case "csv":
		if c.Journal.SignalsFile == "" || c.Journal.TradesFile == "" {
			return fmt.Errorf("journal.signals_file and journal.trades_file are required for csv journal")
		}
	default:
		return fmt.Errorf("journal.type must be sqlite or csv, got %q", c.Journal.Type)
	}

	if c.Risk.MaxTradesPerDay <= 0 {
		return fmt.Errorf("risk.max_trades_per_day must be positive")
	}
	if c.Risk.MaxDailyLoss <= 0 {
		return fmt.Errorf("risk.max_daily_loss must be positive")
	}
	if c.Signal.SLMultiplier <= 0 {
		return fmt.Errorf("signal.sl_multiplier must be positive")
	}
	if p := c.Engine.Position; p.GivebackPct < 0 || p.GivebackPct > 1 {
		return fmt.Errorf("engine.position.giveback_pct must be within [0, 1]")
	}
	return nil
}

// SquareOffBefore parses the square-off offset.
func (c *Config) SquareOffBefore() (time.Duration, error) {
	return time.ParseDuration(c.Account.SquareOffBefore)
}

// LiveFeedConfig converts the feed section into the live feed's
// config. Only meaningful when mode is live.
func (c *Config) LiveFeedConfig() (feed.LiveConfig, error) {
	interval, err := time.ParseDuration(c.Feed.Interval)
	if err != nil {
		return feed.LiveConfig{}, fmt.Errorf("feed.interval: %w", err)
	}
	stale, err := time.ParseDuration(c.Feed.StaleAfter)
	if err != nil {
		return feed.LiveConfig{}, fmt.Errorf("feed.stale_after: %w", err)
	}
	return feed.LiveConfig{
		URL:        c.Feed.URL,
		Interval:   interval,
		StaleAfter: stale,
		Indicators: c.Feed.Indicators,
	}, nil
}

// ApplyEnv overlays secrets and paths from the environment. Wired
// after godotenv so a .env file works in development.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("INTRABOT_FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("INTRABOT_CHAIN_PATH"); v != "" {
		c.Instrument.ChainPath = v
	}
	if v := os.Getenv("INTRABOT_RISK_STATE_PATH"); v != "" {
		c.Account.RiskStatePath = v
	}
	if v := os.Getenv("INTRABOT_JOURNAL_DB"); v != "" {
		c.Journal.DBPath = v
	}
	if v := os.Getenv("INTRABOT_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}
