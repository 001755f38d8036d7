// Package position owns the lifecycle of the single open position: stop
// and target initialization, breakeven, the progressive trailing ladder,
// max-giveback protection and the forced end-of-day exit.
package position

import (
	"fmt"
)

// State is the lifecycle phase. The four Closed states are terminal and
// mutually exclusive; exactly one is ever assigned.
type State int

const (
	PendingEntry State = iota
	Open
	ClosedTarget
	ClosedStop
	ClosedEod
	ClosedManual
)

func (s State) String() string {
	switch s {
	case PendingEntry:
		return "pending_entry"
	case Open:
		return "open"
	case ClosedTarget:
		return "closed_target"
	case ClosedStop:
		return "closed_stop"
	case ClosedEod:
		return "closed_eod"
	case ClosedManual:
		return "closed_manual"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s is one of the closed states.
func (s State) Terminal() bool {
	switch s {
	case ClosedTarget, ClosedStop, ClosedEod, ClosedManual:
		return true
	}
	return false
}

// Side is the direction of premium exposure. Bought options are Long;
// Short is supported so the same ladder math serves written premium.
type Side int

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

// Config holds the exit-management percentages, all expressed as
// fractions of the entry price.
type Config struct {
	// BreakevenTriggerPct is the unrealized profit at which the stop
	// moves to the entry price.
	BreakevenTriggerPct float64 `json:"breakeven_trigger_pct" yaml:"breakeven_trigger_pct"`

	// TrailFrequencyPct is the profit step between trailing rungs
	// beyond breakeven.
	TrailFrequencyPct float64 `json:"trail_frequency_pct" yaml:"trail_frequency_pct"`

	// TrailIncrementPct is how far above entry the stop moves per rung.
	TrailIncrementPct float64 `json:"trail_increment_pct" yaml:"trail_increment_pct"`

	// GivebackPct is the fraction of peak unrealized profit the
	// position may surrender before the stop catches it. 1 disables
	// the giveback guard.
	GivebackPct float64 `json:"giveback_pct" yaml:"giveback_pct"`
}

func DefaultConfig() Config {
	return Config{
		BreakevenTriggerPct: 0.20,
		TrailFrequencyPct:   0.10,
		TrailIncrementPct:   0.08,
		GivebackPct:         0.50,
	}
}
