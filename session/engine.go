package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/quantrail/intrabot/broker"
	"github.com/quantrail/intrabot/feed"
	"github.com/quantrail/intrabot/journal"
	"github.com/quantrail/intrabot/market"
	"github.com/quantrail/intrabot/metrics"
	"github.com/quantrail/intrabot/position"
	"github.com/quantrail/intrabot/regime"
	"github.com/quantrail/intrabot/risk"
	"github.com/quantrail/intrabot/signal"
)

// Config tunes the evaluation loop.
type Config struct {
	// RegimeEvery re-runs the regime classifier every N candles.
	RegimeEvery int `json:"regime_every" yaml:"regime_every"`

	// ExitMaxRetries bounds exit-order retries within one tick before
	// the failure escalates. Monitoring continues regardless.
	ExitMaxRetries uint64 `json:"exit_max_retries" yaml:"exit_max_retries"`

	// ExitRetryInterval seeds the exit retry backoff.
	ExitRetryInterval time.Duration `json:"exit_retry_interval" yaml:"exit_retry_interval"`

	// OrderTimeout bounds each blocking broker call.
	OrderTimeout time.Duration `json:"order_timeout" yaml:"order_timeout"`

	Position position.Config `json:"position" yaml:"position"`
}

func DefaultConfig() Config {
	return Config{
		RegimeEvery:       3,
		ExitMaxRetries:    3,
		ExitRetryInterval: 500 * time.Millisecond,
		OrderTimeout:      10 * time.Second,
		Position:          position.DefaultConfig(),
	}
}

// Engine owns the single evaluation stream: one snapshot runs to
// completion before the next is considered, so Session, position and
// governor state never see overlapping mutation.
type Engine struct {
	cfg  Config
	sess Session

	fd         feed.Feed
	exec       broker.Execution
	gate       *signal.Gate
	classifier *regime.Classifier
	gov        *risk.Governor
	jrnl       journal.Journal
	met        *metrics.Metrics
	log        zerolog.Logger

	candles []market.Candle
	prev    market.Snapshot
	hasPrev bool
	current regime.Regime

	pos *position.Position

	// halted latches on an invariant violation: new entries stop,
	// exit monitoring continues.
	halted bool

	// exitEscalated marks that an exit already exhausted its retries
	// at least once, so later failures log at error, not fatal pitch.
	exitEscalated bool

	lossWarned   bool
	deployWarned bool
}

func NewEngine(cfg Config, sess Session, fd feed.Feed, exec broker.Execution,
	gate *signal.Gate, classifier *regime.Classifier, gov *risk.Governor,
	jrnl journal.Journal, met *metrics.Metrics, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		sess:       sess,
		fd:         fd,
		exec:       exec,
		gate:       gate,
		classifier: classifier,
		gov:        gov,
		jrnl:       jrnl,
		met:        met,
		log:        log.With().Str("component", "engine").Logger(),
	}
}

// Run consumes the feed until it closes or the context ends. On the
// way out any open position is force-closed as a manual exit; the
// process must not terminate holding risk.
func (e *Engine) Run(ctx context.Context) error {
	defer e.shutdown(ctx)

	for {
		snap, err := e.fd.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			e.log.Info().Msg("run cancelled")
			return nil
		case errors.Is(err, feed.ErrClosed):
			e.log.Info().Msg("feed exhausted")
			return nil
		case errors.Is(err, feed.ErrStaleData), errors.Is(err, feed.ErrNoData):
			e.met.TicksSkipped.WithLabelValues("stale").Inc()
			e.log.Warn().Err(err).Msg("tick skipped")
			continue
		default:
			return fmt.Errorf("feed: %w", err)
		}
		e.step(ctx, snap)
	}
}

// step evaluates one snapshot end to end. Exits run before entries so
// risk is shed before it is added.
func (e *Engine) step(ctx context.Context, snap market.Snapshot) {
	// Operator flags (kill switch, manual close) may have been set
	// from another process; re-read them each tick.
	e.gov.Refresh()

	e.candles = append(e.candles, snap.Candle)
	if e.cfg.RegimeEvery > 0 && len(e.candles)%e.cfg.RegimeEvery == 0 {
		e.current = e.classifier.Classify(e.candles, e.current)
	}

	if e.pos != nil {
		e.managePosition(ctx, snap)
	} else {
		e.tryEnter(ctx, snap)
	}

	e.publishGauges()
	e.prev = snap
	e.hasPrev = true
}

func (e *Engine) managePosition(ctx context.Context, snap market.Snapshot) {
	if e.gov.Snapshot().CloseRequested {
		if e.closePosition(ctx, position.ClosedManual, snap.Time) {
			e.gov.ClearCloseRequest()
		}
		return
	}

	octx, cancel := context.WithTimeout(ctx, e.cfg.OrderTimeout)
	ltp, err := e.exec.LastTradedPrice(octx, e.pos.Symbol)
	cancel()
	if err != nil {
		// No current premium: skip this evaluation rather than act
		// on a stale price.
		e.met.TicksSkipped.WithLabelValues("no_quote").Inc()
		e.log.Warn().Err(err).Str("symbol", e.pos.Symbol).Msg("position tick skipped")
		return
	}

	out := e.pos.Evaluate(ltp, snap.Time, e.sess.EodReached(snap.Time))
	if out.StopMoved {
		e.log.Info().
			Str("position", e.pos.ID).
			Float64("stop", e.pos.Stop).
			Float64("ltp", ltp).
			Msg("stop adjusted")
	}
	if out.Close {
		e.closePosition(ctx, out.State, snap.Time)
	}
}

// closePosition places the exit order with bounded backoff and, only
// once it fills, applies the terminal state and reports the close.
// Returns false when every retry failed; the position stays open and
// is re-attempted on the next tick.
func (e *Engine) closePosition(ctx context.Context, state position.State, now time.Time) bool {
	pos := e.pos

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.cfg.ExitRetryInterval

	var fill broker.Fill
	attempt := 0
	op := func() error {
		if attempt > 0 {
			e.met.ExitRetries.Inc()
		}
		attempt++

		octx, cancel := context.WithTimeout(ctx, e.cfg.OrderTimeout)
		defer cancel()
		f, err := e.exec.PlaceOrder(octx, broker.Order{
			Symbol: pos.Symbol,
			Side:   broker.Sell,
			Qty:    pos.Qty,
			Tag:    state.String(),
		})
		if err != nil {
			return err
		}
		fill = f
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(policy, e.cfg.ExitMaxRetries), ctx))
	if err != nil {
		// An unresolved open position is never abandoned: escalate
		// loudly and keep evaluating it every tick.
		ev := e.log.Error()
		if !e.exitEscalated {
			ev = e.log.Error().Bool("escalated", true)
			e.exitEscalated = true
		}
		ev.Err(err).
			Str("position", pos.ID).
			Str("wanted", state.String()).
			Msg("exit order failed after retries; position remains monitored")
		return false
	}

	if err := pos.Close(state, fill.Price, now); err != nil {
		e.log.Error().Err(err).Str("position", pos.ID).Msg("close bookkeeping failed")
		return false
	}

	pl := pos.RealizedPL()
	trippedBefore := e.gov.Snapshot().BreakerTripped
	e.gov.RecordClose(risk.CloseResult{
		PositionValue: pos.Value(),
		RealizedPL:    pl,
	})

	if err := e.jrnl.RecordTrade(journal.TradeRecord{
		TradeID:    pos.ID,
		Symbol:     pos.Symbol,
		Direction:  pos.Side.String(),
		Qty:        pos.Qty,
		EntryPrice: pos.Entry,
		ExitPrice:  fill.Price,
		EntryTime:  pos.EntryTime,
		ExitTime:   now,
		Reason:     state.String(),
		RealizedPL: pl,
	}); err != nil {
		e.log.Error().Err(err).Str("position", pos.ID).Msg("trade journaling failed")
	}

	e.met.TradesClosed.WithLabelValues(state.String()).Inc()
	// Count the trip transition itself, not every close after it.
	if !trippedBefore && e.gov.Snapshot().BreakerTripped {
		e.met.BreakerTrips.Inc()
	}

	e.log.Info().
		Str("position", pos.ID).
		Str("reason", state.String()).
		Float64("exit", fill.Price).
		Float64("realized_pl", pl).
		Msg("position closed")

	e.pos = nil
	e.exitEscalated = false
	return true
}

func (e *Engine) tryEnter(ctx context.Context, snap market.Snapshot) {
	if e.halted || !e.sess.InWindow(snap.Time) || e.sess.EodReached(snap.Time) {
		return
	}

	in := signal.Input{
		Regime:       e.current,
		Snap:         snap,
		PositionOpen: e.pos != nil,
	}
	if e.hasPrev {
		in.Prev = e.prev
	}

	sig, rej := e.gate.Evaluate(in)
	if rej != nil {
		e.recordRejection(snap, rej)
		return
	}

	octx, cancel := context.WithTimeout(ctx, e.cfg.OrderTimeout)
	fill, err := e.exec.PlaceOrder(octx, broker.Order{
		ID:     sig.ID,
		Symbol: sig.Instrument.Symbol,
		Side:   broker.Buy,
		Qty:    sig.Qty,
		Tag:    "entry",
	})
	cancel()
	if err != nil {
		// Entry failure discards the signal; no half-open state.
		e.recordRejection(snap, &signal.Rejection{
			Code:   "entry_failed",
			Reason: err.Error(),
		})
		e.log.Warn().Err(err).Str("signal", sig.ID).Msg("entry order failed, signal discarded")
		return
	}

	if e.pos != nil {
		// Two open positions would mean the gate and this path raced
		// somehow. Fatal to new trading, never to exit monitoring.
		e.halted = true
		e.log.Error().
			Str("existing", e.pos.ID).
			Str("incoming", sig.ID).
			Msg("second open position detected; new entries halted")
		return
	}

	pos, err := position.New(position.Params{
		ID:             sig.ID,
		Symbol:         sig.Instrument.Symbol,
		Side:           position.Long,
		Qty:            fill.Qty,
		Entry:          fill.Price,
		InitialStopPct: sig.StopDistance / fill.Price,
		TargetPct:      sig.TargetDistance / fill.Price,
		EntryTime:      snap.Time,
	}, e.cfg.Position)
	if err != nil {
		e.log.Error().Err(err).Str("signal", sig.ID).Msg("position construction failed")
		return
	}
	e.pos = pos
	e.gov.RecordOpen(pos.Value())
	e.met.SignalsEmitted.Inc()

	if err := e.jrnl.RecordSignal(journal.SignalEvent{
		SignalID:  sig.ID,
		CandleID:  sig.CandleID,
		Time:      sig.Time,
		Regime:    sig.Regime.String(),
		Direction: sig.Direction.String(),
		Symbol:    sig.Instrument.Symbol,
		RefPrice:  sig.RefPrice,
		Qty:       sig.Qty,
		Accepted:  true,
	}); err != nil {
		e.log.Error().Err(err).Str("signal", sig.ID).Msg("signal journaling failed")
	}

	e.log.Info().
		Str("position", pos.ID).
		Str("symbol", pos.Symbol).
		Float64("entry", pos.Entry).
		Float64("stop", pos.Stop).
		Float64("target", pos.Target).
		Int("qty", pos.Qty).
		Msg("position opened")
}

func (e *Engine) recordRejection(snap market.Snapshot, rej *signal.Rejection) {
	// Routine outcomes (no setup on a quiet candle) stay out of the
	// journal; material refusals are part of the audit trail.
	if rej.Code == signal.CodeNoSetup {
		return
	}
	e.met.SignalsRejected.WithLabelValues(rej.Code).Inc()
	if err := e.jrnl.RecordSignal(journal.SignalEvent{
		CandleID:   snap.ID(),
		Time:       snap.Time,
		Regime:     e.current.String(),
		Accepted:   false,
		RejectCode: rej.Code,
		Reason:     rej.Reason,
	}); err != nil {
		e.log.Error().Err(err).Msg("rejection journaling failed")
	}
}

func (e *Engine) publishGauges() {
	st := e.gov.Snapshot()
	e.met.DailyPnL.Set(st.DailyPnL)
	e.met.CapitalDeployed.Set(st.CapitalDeployed)
	if e.pos != nil {
		e.met.OpenPositions.Set(1)
	} else {
		e.met.OpenPositions.Set(0)
	}

	// Early warnings before the hard limits actually bite.
	lim := e.gov.Limits()
	if lim.MaxDailyLoss > 0 {
		if -st.DailyPnL >= 0.75*lim.MaxDailyLoss {
			if !e.lossWarned {
				e.lossWarned = true
				e.log.Warn().
					Float64("daily_pnl", st.DailyPnL).
					Float64("max_daily_loss", lim.MaxDailyLoss).
					Msg("daily loss past 75% of limit")
			}
		} else {
			e.lossWarned = false
		}
	}
	if lim.MaxCapitalDeployed > 0 {
		if st.CapitalDeployed >= 0.9*lim.MaxCapitalDeployed {
			if !e.deployWarned {
				e.deployWarned = true
				e.log.Warn().
					Float64("deployed", st.CapitalDeployed).
					Float64("max_deployed", lim.MaxCapitalDeployed).
					Msg("capital deployment past 90% of limit")
			}
		} else {
			e.deployWarned = false
		}
	}
}

// shutdown force-closes any open position before Run returns. Uses a
// fresh context so a cancelled run still gets its exit order out.
func (e *Engine) shutdown(ctx context.Context) {
	if e.pos == nil {
		return
	}
	e.log.Warn().Str("position", e.pos.ID).Msg("shutting down with open position, forcing close")

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if !e.closePosition(sctx, position.ClosedManual, time.Now().UTC()) {
		e.log.Error().Str("position", e.pos.ID).Msg("forced close failed; position remains open at the broker")
	}
}

// Regime reports the engine's current regime read.
func (e *Engine) Regime() regime.Regime { return e.current }

// Position returns the open position, or nil.
func (e *Engine) Position() *position.Position { return e.pos }
