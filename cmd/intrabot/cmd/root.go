package cmd

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantrail/intrabot/config"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "intrabot",
	Short: "Risk-gated intraday options trading engine",
	Long: `Intrabot trades one leveraged index-option position per session under
hard account-level risk limits.

It provides:
  - A regime classifier that reads the session as trending or sideways
  - A signal gate with liquidity screens and ATR-based sizing
  - A position state machine with breakeven, trailing and giveback stops
  - A persistent risk governor with circuit breaker and kill switch
  - Replay of recorded candle files through the exact live code path`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "", "path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the config file (or defaults), then a .env overlay.
func loadConfig() (*config.Config, error) {
	// Absent .env is fine; present values win over the file.
	_ = godotenv.Load()

	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromFile(cfgPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	// The gate sizes against the session's working capital.
	cfg.Signal.Capital = cfg.Account.Capital
	cfg.Signal.RiskPerTradePct = cfg.Risk.RiskPerTradePct
	return cfg, nil
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
