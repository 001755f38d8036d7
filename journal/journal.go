// Package journal records every signal decision and closed trade for
// audit and performance review.
package journal

import "time"

// SignalEvent is one gate decision, accepted or rejected. Rejections
// are part of the audit trail: knowing why the system did not trade
// matters as much as knowing why it did.
type SignalEvent struct {
	SignalID   string
	CandleID   string
	Time       time.Time
	Regime     string
	Direction  string
	Symbol     string
	RefPrice   float64
	Qty        int
	Accepted   bool
	RejectCode string
	Reason     string
}

// TradeRecord is one completed round trip.
type TradeRecord struct {
	TradeID    string
	Symbol     string
	Direction  string
	Qty        int
	EntryPrice float64
	ExitPrice  float64
	EntryTime  time.Time
	ExitTime   time.Time
	Reason     string
	RealizedPL float64
}

type Journal interface {
	RecordSignal(SignalEvent) error
	RecordTrade(TradeRecord) error
	Close() error
}

// Nop discards everything. Used by tests that exercise the engine
// without caring about the audit trail.
type Nop struct{}

func (Nop) RecordSignal(SignalEvent) error { return nil }
func (Nop) RecordTrade(TradeRecord) error  { return nil }
func (Nop) Close() error                   { return nil }
