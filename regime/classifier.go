package regime

import (
	"github.com/rs/zerolog"

	"github.com/quantrail/intrabot/indicators"
	"github.com/quantrail/intrabot/market"
)

// Config holds the classification thresholds. Defaults mirror the usual
// first-half-hour read of an index session.
type Config struct {
	// MinCandles is the minimum window before any classification is
	// attempted; fewer candles yields Undetermined.
	MinCandles int `json:"min_candles" yaml:"min_candles"`

	// VWAPConsistency is the fraction of closes that must sit on one
	// side of VWAP for the consistency condition to hold.
	VWAPConsistency float64 `json:"vwap_consistency" yaml:"vwap_consistency"`

	// NetMovePct is the fractional net displacement from the window
	// open that counts as a directional move.
	NetMovePct float64 `json:"net_move_pct" yaml:"net_move_pct"`

	// EMADivergencePct is the fractional gap between the fast and slow
	// EMA that counts as alignment.
	EMADivergencePct float64 `json:"ema_divergence_pct" yaml:"ema_divergence_pct"`

	FastEMA int `json:"fast_ema" yaml:"fast_ema"`
	SlowEMA int `json:"slow_ema" yaml:"slow_ema"`

	// ConfirmCount is the hysteresis: a determined regime is replaced
	// only after the contrary classification repeats this many
	// evaluations in a row. 1 disables hysteresis.
	ConfirmCount int `json:"confirm_count" yaml:"confirm_count"`
}

func DefaultConfig() Config {
	return Config{
		MinCandles:       20,
		VWAPConsistency:  0.7,
		NetMovePct:       0.003,
		EMADivergencePct: 0.002,
		FastEMA:          5,
		SlowEMA:          20,
		ConfirmCount:     2,
	}
}

// Classifier applies the two-of-three trending rule to a candle window.
// It keeps only hysteresis state between calls; each evaluation is
// otherwise independent.
type Classifier struct {
	cfg Config
	log zerolog.Logger

	pending      Regime
	pendingCount int
}

func NewClassifier(cfg Config, log zerolog.Logger) *Classifier {
	if cfg.MinCandles <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.ConfirmCount < 1 {
		cfg.ConfirmCount = 1
	}
	return &Classifier{
		cfg: cfg,
		log: log.With().Str("component", "regime").Logger(),
	}
}

// Classify evaluates the window and returns the session regime, applying
// hysteresis against the prior value. Undetermined never displaces a
// determined prior.
func (c *Classifier) Classify(candles []market.Candle, prior Regime) Regime {
	raw := c.classifyRaw(candles)

	if raw == Undetermined {
		// Insufficient data is not evidence of a regime change.
		c.pendingCount = 0
		return prior
	}
	if prior == Undetermined {
		c.pendingCount = 0
		c.log.Info().Stringer("regime", raw).Msg("session regime determined")
		return raw
	}
	if raw == prior {
		c.pendingCount = 0
		return prior
	}

	// Contrary read: require ConfirmCount in a row before flipping.
	if c.pending == raw {
		c.pendingCount++
	} else {
		c.pending = raw
		c.pendingCount = 1
	}
	if c.pendingCount >= c.cfg.ConfirmCount {
		c.pendingCount = 0
		c.log.Info().
			Stringer("from", prior).
			Stringer("to", raw).
			Msg("session regime changed")
		return raw
	}

	c.log.Debug().
		Stringer("prior", prior).
		Stringer("candidate", raw).
		Int("confirmations", c.pendingCount).
		Msg("regime change pending confirmation")
	return prior
}

// Reset clears hysteresis state at a session boundary.
func (c *Classifier) Reset() {
	c.pending = Undetermined
	c.pendingCount = 0
}

func (c *Classifier) classifyRaw(candles []market.Candle) Regime {
	if len(candles) < c.cfg.MinCandles {
		return Undetermined
	}

	// Condition 1: closes consistently on one side of the running VWAP.
	vwap := indicators.NewVWAP()
	above, below := 0, 0
	for _, cd := range candles {
		vwap.Update(cd)
		switch {
		case cd.Close > vwap.Value():
			above++
		case cd.Close < vwap.Value():
			below++
		}
	}
	n := float64(len(candles))
	consistent := float64(above)/n > c.cfg.VWAPConsistency ||
		float64(below)/n > c.cfg.VWAPConsistency

	// Condition 2: net displacement from the window open.
	first := candles[0].Close
	last := candles[len(candles)-1].Close
	moved := first != 0 && abs(last-first)/first > c.cfg.NetMovePct

	// Condition 3: fast/slow EMA divergence.
	fast := indicators.EMASeries(candles, c.cfg.FastEMA)
	slow := indicators.EMASeries(candles, c.cfg.SlowEMA)
	diverged := slow != 0 && abs(fast-slow)/slow > c.cfg.EMADivergencePct

	score := 0
	for _, hit := range []bool{consistent, moved, diverged} {
		if hit {
			score++
		}
	}
	if score >= 2 {
		return Trending
	}
	return Sideways
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
