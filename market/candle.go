package market

import "time"

// Candle is one OHLCV bar of the underlying index.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// ID identifies the candle within a session. Signals are deduplicated on
// this value, so it must be stable for a given bar no matter how many
// times the bar is delivered.
func (c Candle) ID() string {
	return c.Time.UTC().Format("20060102T150405")
}

// Snapshot is a candle plus the indicator values computed up to and
// including that candle. The engine evaluates exactly one Snapshot per
// tick; regime, signal and position logic never reach past it.
type Snapshot struct {
	Candle

	VWAP    float64
	EMAFast float64
	EMASlow float64
	RSI     float64
	ATR     float64
	ADX     float64

	// SupertrendBull is true while the Supertrend overlay is in its
	// bullish state.
	SupertrendBull bool
}

// Deviation returns the fractional distance of the close from VWAP.
func (s Snapshot) Deviation() float64 {
	if s.VWAP == 0 {
		return 0
	}
	return (s.Close - s.VWAP) / s.VWAP
}
