// Package signal decides whether a market snapshot, under the current
// regime and risk authorization, becomes a sized entry signal.
package signal

import (
	"time"

	"github.com/quantrail/intrabot/market"
	"github.com/quantrail/intrabot/regime"
)

// Direction is the underlying view a signal expresses. A bullish view
// buys a call, a bearish view buys a put.
type Direction int

const (
	Bullish Direction = iota
	Bearish
)

func (d Direction) String() string {
	if d == Bearish {
		return "bearish"
	}
	return "bullish"
}

// OptionType maps the directional view onto the contract bought.
func (d Direction) OptionType() market.OptionType {
	if d == Bearish {
		return market.Put
	}
	return market.Call
}

// Signal is an authorized, sized entry candidate. It is ephemeral:
// consumed into a position on fill or discarded on order failure.
type Signal struct {
	ID        string
	CandleID  string
	Regime    regime.Regime
	Direction Direction

	Instrument market.Instrument

	// RefPrice is the option premium the sizing was computed against.
	RefPrice float64

	// StopDistance and TargetDistance are premium distances derived
	// from ATR.
	StopDistance   float64
	TargetDistance float64

	Qty  int
	Time time.Time
}

// Value is the notional the signal would deploy at its reference price.
func (s Signal) Value() float64 {
	return s.RefPrice * float64(s.Qty)
}

// Rejection codes. Rejections are recorded decisions, not errors.
const (
	CodePositionOpen    = "position_open"
	CodeDuplicateCandle = "duplicate_candle"
	CodeNoSetup         = "no_setup"
	CodeRiskDenied      = "risk_denied"
	CodeDataUnavailable = "data_unavailable"
	CodeLowOpenInterest = "low_open_interest"
	CodeWideSpread      = "wide_spread"
	CodeZeroQuantity    = "zero_quantity"
)

// Rejection explains why Evaluate produced no signal.
type Rejection struct {
	Code   string
	Reason string
}

func reject(code, reason string) (*Signal, *Rejection) {
	return nil, &Rejection{Code: code, Reason: reason}
}
