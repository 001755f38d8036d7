// Package feed delivers ordered market snapshots to the engine. The
// replay feed drives simulations from recorded candles; the live feed
// consumes a broker websocket stream.
package feed

import (
	"context"
	"errors"

	"github.com/quantrail/intrabot/indicators"
	"github.com/quantrail/intrabot/market"
)

var (
	// ErrNoData means the feed has nothing for this tick. The engine
	// skips the tick; it never reuses a previous price as current.
	ErrNoData = errors.New("feed: no data")

	// ErrStaleData means the latest observation is older than the
	// freshness window. Treated exactly like ErrNoData by callers.
	ErrStaleData = errors.New("feed: stale data")

	// ErrClosed means the feed is exhausted or shut down.
	ErrClosed = errors.New("feed: closed")
)

// Feed produces one completed candle snapshot per call, in order, with
// indicators computed through that candle.
type Feed interface {
	Next(ctx context.Context) (market.Snapshot, error)
	Close() error
}

// IndicatorConfig sets the periods of the per-session indicator
// pipeline.
type IndicatorConfig struct {
	EMAFast          int     `json:"ema_fast" yaml:"ema_fast"`
	EMASlow          int     `json:"ema_slow" yaml:"ema_slow"`
	RSIPeriod        int     `json:"rsi_period" yaml:"rsi_period"`
	ATRPeriod        int     `json:"atr_period" yaml:"atr_period"`
	ADXPeriod        int     `json:"adx_period" yaml:"adx_period"`
	SupertrendPeriod int     `json:"supertrend_period" yaml:"supertrend_period"`
	SupertrendMult   float64 `json:"supertrend_mult" yaml:"supertrend_mult"`
}

func DefaultIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{
		EMAFast:          5,
		EMASlow:          20,
		RSIPeriod:        14,
		ATRPeriod:        14,
		ADXPeriod:        14,
		SupertrendPeriod: 10,
		SupertrendMult:   3,
	}
}

// pipeline streams candles through the indicator set and stamps each
// completed candle into a snapshot. Values not yet warmed up stay
// zero.
type pipeline struct {
	vwap    *indicators.VWAP
	emaFast *indicators.EMA
	emaSlow *indicators.EMA
	rsi     *indicators.RSI
	atr     *indicators.ATR
	adx     *indicators.ADX
	st      *indicators.Supertrend
}

func newPipeline(cfg IndicatorConfig) *pipeline {
	return &pipeline{
		vwap:    indicators.NewVWAP(),
		emaFast: indicators.NewEMA(cfg.EMAFast),
		emaSlow: indicators.NewEMA(cfg.EMASlow),
		rsi:     indicators.NewRSI(cfg.RSIPeriod),
		atr:     indicators.NewATR(cfg.ATRPeriod),
		adx:     indicators.NewADX(cfg.ADXPeriod),
		st:      indicators.NewSupertrend(cfg.SupertrendPeriod, cfg.SupertrendMult),
	}
}

func (p *pipeline) apply(c market.Candle) market.Snapshot {
	p.vwap.Update(c)
	p.emaFast.Update(c)
	p.emaSlow.Update(c)
	p.rsi.Update(c)
	p.atr.Update(c)
	p.adx.Update(c)
	p.st.Update(c)

	s := market.Snapshot{Candle: c}
	if p.vwap.Ready() {
		s.VWAP = p.vwap.Value()
	}
	if p.emaFast.Ready() {
		s.EMAFast = p.emaFast.Value()
	}
	if p.emaSlow.Ready() {
		s.EMASlow = p.emaSlow.Value()
	}
	if p.rsi.Ready() {
		s.RSI = p.rsi.Value()
	}
	if p.atr.Ready() {
		s.ATR = p.atr.Value()
	}
	if p.adx.Ready() {
		s.ADX = p.adx.Value()
	}
	if p.st.Ready() {
		s.SupertrendBull = p.st.Bullish()
	}
	return s
}

func (p *pipeline) reset() {
	p.vwap.Reset()
	p.emaFast.Reset()
	p.emaSlow.Reset()
	p.rsi.Reset()
	p.atr.Reset()
	p.adx.Reset()
	p.st.Reset()
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
