package signal

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/quantrail/intrabot/internal/id"
	"github.com/quantrail/intrabot/market"
	"github.com/quantrail/intrabot/regime"
	"github.com/quantrail/intrabot/risk"
)

// Config tunes setup detection, liquidity screens and sizing.
type Config struct {
	// SLMultiplier and TargetMultiplier scale ATR into premium stop
	// and target distances.
	SLMultiplier     float64 `json:"sl_multiplier" yaml:"sl_multiplier"`
	TargetMultiplier float64 `json:"target_multiplier" yaml:"target_multiplier"`

	// MinOpenInterest and MaxSpreadPct screen out illiquid contracts.
	MinOpenInterest int64 `json:"min_open_interest" yaml:"min_open_interest"`
	MaxSpreadPct    float64 `json:"max_spread_pct" yaml:"max_spread_pct"`

	// VWAPDeviationPct is the minimum stretch from VWAP for a
	// sideways reversion setup.
	VWAPDeviationPct float64 `json:"vwap_deviation_pct" yaml:"vwap_deviation_pct"`

	// RSIOversold and RSIOverbought mark the oscillator extremes a
	// reversion setup additionally requires.
	RSIOversold   float64 `json:"rsi_oversold" yaml:"rsi_oversold"`
	RSIOverbought float64 `json:"rsi_overbought" yaml:"rsi_overbought"`

	// ADXMin is the trend-strength floor for trending setups.
	ADXMin float64 `json:"adx_min" yaml:"adx_min"`

	// Capital and RiskPerTradePct drive quantity sizing.
	Capital         float64 `json:"capital" yaml:"capital"`
	RiskPerTradePct float64 `json:"risk_per_trade_pct" yaml:"risk_per_trade_pct"`
}

func DefaultConfig() Config {
	return Config{
		SLMultiplier:     1.5,
		TargetMultiplier: 3.0,
		MinOpenInterest:  100000,
		MaxSpreadPct:     0.01,
		VWAPDeviationPct: 0.0025,
		RSIOversold:      30,
		RSIOverbought:    70,
		ADXMin:           20,
		Capital:          100000,
		RiskPerTradePct:  0.02,
	}
}

// Authorizer is the risk-governor surface the gate consults.
// *risk.Governor satisfies it.
type Authorizer interface {
	AuthorizeEntry(candidateValue float64) risk.Decision
	CapitalRoom() float64
}

// OptionPicker resolves the tradable contract for a directional view:
// ATM strike for the spot, nearest listed expiry, live quote.
type OptionPicker interface {
	Pick(typ market.OptionType, spot float64) (market.Instrument, market.Quote, error)
}

// Input is one evaluation's worth of context.
type Input struct {
	Regime regime.Regime
	Snap   market.Snapshot

	// Prev is the previous completed snapshot, used for
	// pullback-resumption detection. Zero value means unavailable.
	Prev market.Snapshot

	PositionOpen bool
}

// Gate turns snapshots into at most one signal per candle, subject to
// regime setups, liquidity screens and risk authorization.
type Gate struct {
	cfg    Config
	auth   Authorizer
	picker OptionPicker
	log    zerolog.Logger

	emitted map[string]bool
}

func NewGate(cfg Config, auth Authorizer, picker OptionPicker, log zerolog.Logger) *Gate {
	return &Gate{
		cfg:     cfg,
		auth:    auth,
		picker:  picker,
		log:     log.With().Str("component", "signal").Logger(),
		emitted: make(map[string]bool),
	}
}

// Reset clears per-session state (candle deduplication) at a session
// boundary.
func (g *Gate) Reset() {
	g.emitted = make(map[string]bool)
}

// Evaluate returns a sized signal or the rejection that stopped it.
// Exactly one of the two results is non-nil.
func (g *Gate) Evaluate(in Input) (*Signal, *Rejection) {
	if in.PositionOpen {
		return reject(CodePositionOpen, "a position is already open")
	}

	candleID := in.Snap.ID()
	if g.emitted[candleID] {
		return reject(CodeDuplicateCandle, "duplicate_candle")
	}

	// Standing account-level refusals (kill switch, breaker, trade
	// count, loss limits) are checked before any setup work; the
	// capital check reruns later against the sized value.
	if d := g.auth.AuthorizeEntry(0); !d.Allowed {
		return reject(CodeRiskDenied, d.Reason)
	}

	dir, ok := g.detect(in)
	if !ok {
		return reject(CodeNoSetup, fmt.Sprintf("no %s setup on this candle", in.Regime))
	}

	inst, quote, err := g.picker.Pick(dir.OptionType(), in.Snap.Close)
	if err != nil {
		return reject(CodeDataUnavailable, err.Error())
	}
	if quote.OpenInterest < g.cfg.MinOpenInterest {
		return reject(CodeLowOpenInterest,
			fmt.Sprintf("%s OI %d below minimum %d", inst.Symbol, quote.OpenInterest, g.cfg.MinOpenInterest))
	}
	if sp := quote.SpreadPct(); sp > g.cfg.MaxSpreadPct {
		return reject(CodeWideSpread,
			fmt.Sprintf("%s spread %.4f above maximum %.4f", inst.Symbol, sp, g.cfg.MaxSpreadPct))
	}

	premium := quote.LTP
	if premium <= 0 {
		return reject(CodeDataUnavailable, fmt.Sprintf("%s has no traded price", inst.Symbol))
	}

	stopDist := in.Snap.ATR * g.cfg.SLMultiplier
	if stopDist <= 0 {
		return reject(CodeDataUnavailable, "ATR unavailable for sizing")
	}
	targetDist := in.Snap.ATR * g.cfg.TargetMultiplier

	qty := g.size(premium, stopDist, inst.LotSize)
	if qty <= 0 {
		return reject(CodeZeroQuantity,
			fmt.Sprintf("risk budget sizes below one lot of %d", inst.LotSize))
	}

	if d := g.auth.AuthorizeEntry(premium * float64(qty)); !d.Allowed {
		return reject(CodeRiskDenied, d.Reason)
	}

	sig := &Signal{
		ID:             id.NewAt(in.Snap.Time),
		CandleID:       candleID,
		Regime:         in.Regime,
		Direction:      dir,
		Instrument:     inst,
		RefPrice:       premium,
		StopDistance:   stopDist,
		TargetDistance: targetDist,
		Qty:            qty,
		Time:           in.Snap.Time,
	}
	g.emitted[candleID] = true

	g.log.Info().
		Str("signal", sig.ID).
		Str("candle", candleID).
		Str("direction", dir.String()).
		Str("symbol", inst.Symbol).
		Float64("premium", premium).
		Int("qty", qty).
		Msg("signal emitted")
	return sig, nil
}

// detect branches on regime: trending wants a pullback to VWAP
// followed by resumption in the prevailing direction; sideways wants a
// stretch from VWAP paired with an oscillator extreme.
func (g *Gate) detect(in Input) (Direction, bool) {
	s := in.Snap
	switch in.Regime {
	case regime.Trending:
		if in.Prev.Time.IsZero() {
			return 0, false
		}
		if s.ADX < g.cfg.ADXMin {
			return 0, false
		}
		up := s.EMAFast > s.EMASlow && s.SupertrendBull
		down := s.EMAFast < s.EMASlow && !s.SupertrendBull
		switch {
		case up && in.Prev.Low <= in.Prev.VWAP && s.Close > in.Prev.High:
			return Bullish, true
		case down && in.Prev.High >= in.Prev.VWAP && s.Close < in.Prev.Low:
			return Bearish, true
		}
	case regime.Sideways:
		dev := s.Deviation()
		switch {
		case dev <= -g.cfg.VWAPDeviationPct && s.RSI <= g.cfg.RSIOversold:
			return Bullish, true
		case dev >= g.cfg.VWAPDeviationPct && s.RSI >= g.cfg.RSIOverbought:
			return Bearish, true
		}
	}
	return 0, false
}

// size converts the per-trade risk budget into a lot-rounded quantity,
// then shrinks it until the notional fits the remaining capital room.
func (g *Gate) size(premium, stopDist float64, lotSize int) int {
	if lotSize <= 0 {
		lotSize = 1
	}
	budget := g.cfg.Capital * g.cfg.RiskPerTradePct
	qty := int(math.Floor(budget / stopDist))
	qty -= qty % lotSize

	room := g.auth.CapitalRoom()
	for qty > 0 && premium*float64(qty) > room {
		qty -= lotSize
	}
	return qty
}
