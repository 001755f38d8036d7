package cmd

import (
	"context"
	"fmt"
	"net/http"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantrail/intrabot/broker"
	"github.com/quantrail/intrabot/broker/sim"
	"github.com/quantrail/intrabot/config"
	"github.com/quantrail/intrabot/feed"
	"github.com/quantrail/intrabot/journal"
	"github.com/quantrail/intrabot/market"
	"github.com/quantrail/intrabot/metrics"
	"github.com/quantrail/intrabot/regime"
	"github.com/quantrail/intrabot/risk"
	"github.com/quantrail/intrabot/session"
	"github.com/quantrail/intrabot/signal"
)

var runDay string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a trading session",
	Long: `Run one trading session, live or from a recorded candle file.

Replay mode drives the exact live code path against a candle CSV and a
simulated execution venue, so a recorded day reproduces the decisions
the live session would have made.

Example:
  intrabot run -f configs/nifty.yaml --day 2024-09-02`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDay, "day", "", "session day YYYY-MM-DD (default: today)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	day := time.Now().UTC()
	if runDay != "" {
		day, err = time.Parse("2006-01-02", runDay)
		if err != nil {
			return fmt.Errorf("parse --day: %w", err)
		}
	}

	chain, err := market.LoadChainCSV(cfg.Instrument.ChainPath, cfg.Instrument.Underlying, cfg.Instrument.StrikeStep)
	if err != nil {
		return fmt.Errorf("load instrument chain: %w", err)
	}

	jrnl, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jrnl.Close()

	store, err := risk.NewSQLiteStore(cfg.Account.RiskStatePath)
	if err != nil {
		return fmt.Errorf("open risk state: %w", err)
	}
	defer store.Close()
	gov := risk.NewGovernor(cfg.Risk, store, day, log)

	squareOff, err := cfg.SquareOffBefore()
	if err != nil {
		return err
	}
	sess := session.NewSession(day, cfg.Account.Capital, squareOff)

	fd, exec, err := buildFeedAndVenue(cfg, chain, log)
	if err != nil {
		return err
	}
	defer fd.Close()

	// Expiry selection keys off the session day so a replayed session
	// resolves the contracts that were listed then.
	sessionDay := day
	picker := broker.NewATMPicker(chain, exec, func() time.Time { return sessionDay })
	gate := signal.NewGate(cfg.Signal, gov, picker, log)
	classifier := regime.NewClassifier(cfg.Regime, log)
	met := metrics.New()

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", met.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics exposed")
	}

	engine := session.NewEngine(cfg.Engine, sess, fd, exec, gate, classifier, gov, jrnl, met, log)

	// SIGINT/SIGTERM cancel the run; the engine force-closes any open
	// position on the way out.
	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("mode", cfg.Feed.Mode).
		Str("day", day.Format("2006-01-02")).
		Float64("capital", cfg.Account.Capital).
		Msg("session starting")
	return engine.Run(ctx)
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	if strings.EqualFold(cfg.Journal.Type, "csv") {
		return journal.NewCSV(cfg.Journal.SignalsFile, cfg.Journal.TradesFile)
	}
	return journal.NewSQLite(cfg.Journal.DBPath)
}

// buildFeedAndVenue wires the data source and execution venue for the
// configured mode. Replay pairs the candle file with the simulator;
// live pairs the websocket stream with the simulator until a real
// gateway is configured in its place.
func buildFeedAndVenue(cfg *config.Config, chain *market.OptionChain, log zerolog.Logger) (feed.Feed, broker.Execution, error) {
	venue := sim.New(chain, log)

	if strings.EqualFold(cfg.Feed.Mode, "live") {
		liveCfg, err := cfg.LiveFeedConfig()
		if err != nil {
			return nil, nil, err
		}
		return feed.NewLive(liveCfg, log), venue, nil
	}

	fd, err := feed.NewReplayFromCSV(cfg.Feed.CandleFile, cfg.Feed.Indicators)
	if err != nil {
		return nil, nil, fmt.Errorf("load candle file: %w", err)
	}
	return fd, venue, nil
}
