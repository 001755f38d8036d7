package position

import (
	"fmt"
	"time"
)

// Params fixes a position at entry fill time.
type Params struct {
	ID     string
	Symbol string
	Side   Side
	Qty    int
	Entry  float64

	// InitialStopPct places the protective stop as a fraction of the
	// entry price. Required, must be positive.
	InitialStopPct float64

	// TargetPct places the profit target as a fraction of the entry
	// price. Zero means no fixed target; exits come from the stop
	// ladder, giveback or EOD.
	TargetPct float64

	EntryTime time.Time
}

// Position is the live state of one filled trade. Not safe for
// concurrent use; the session engine serializes ticks.
type Position struct {
	ID     string
	Symbol string
	Side   Side
	Qty    int

	Entry  float64
	Stop   float64
	Target float64

	EntryTime time.Time
	ExitTime  time.Time
	ExitPrice float64

	MaxFavorable float64

	cfg       Config
	state     State
	trailStep int
}

// floatTol absorbs binary-representation noise when a profit lands
// exactly on a ladder threshold.
const floatTol = 1e-9

// Outcome is the decision Evaluate returns for one price observation.
// When Close is true the caller must place the exit order and, only
// after it succeeds, confirm the terminal state with Close().
type Outcome struct {
	Close bool
	State State
	Price float64

	// StopMoved reports that this observation adjusted the stop
	// (breakeven, trail rung or giveback). Useful for journaling.
	StopMoved bool
}

// New creates a filled position in the Open state with its initial
// stop and target derived from the entry fill.
func New(p Params, cfg Config) (*Position, error) {
	if p.Entry <= 0 {
		return nil, fmt.Errorf("position: entry price %.2f must be positive", p.Entry)
	}
	if p.Qty <= 0 {
		return nil, fmt.Errorf("position: quantity %d must be positive", p.Qty)
	}
	if p.InitialStopPct <= 0 {
		return nil, fmt.Errorf("position: initial stop pct %.4f must be positive", p.InitialStopPct)
	}

	pos := &Position{
		ID:           p.ID,
		Symbol:       p.Symbol,
		Side:         p.Side,
		Qty:          p.Qty,
		Entry:        p.Entry,
		EntryTime:    p.EntryTime,
		MaxFavorable: p.Entry,
		cfg:          cfg,
		state:        Open,
	}
	if p.Side == Long {
		pos.Stop = p.Entry * (1 - p.InitialStopPct)
		if p.TargetPct > 0 {
			pos.Target = p.Entry * (1 + p.TargetPct)
		}
	} else {
		pos.Stop = p.Entry * (1 + p.InitialStopPct)
		if p.TargetPct > 0 {
			pos.Target = p.Entry * (1 - p.TargetPct)
		}
	}
	return pos, nil
}

func (p *Position) State() State { return p.state }

// ProfitPct is the unrealized move in the position's favor as a
// fraction of entry. Negative when under water.
func (p *Position) ProfitPct(price float64) float64 {
	if p.Side == Long {
		return (price - p.Entry) / p.Entry
	}
	return (p.Entry - price) / p.Entry
}

// UnrealizedPL is the signed rupee P&L at price for the full quantity.
func (p *Position) UnrealizedPL(price float64) float64 {
	if p.Side == Long {
		return (price - p.Entry) * float64(p.Qty)
	}
	return (p.Entry - price) * float64(p.Qty)
}

// Evaluate applies one price observation: it checks the forced EOD
// exit, the hard stop and the target, and ratchets the stop through
// breakeven, the trailing ladder and the giveback guard. The stop only
// ever tightens. Evaluate never assigns a terminal state itself; the
// returned Outcome tells the caller which close to confirm once the
// exit order fills.
func (p *Position) Evaluate(price float64, now time.Time, eod bool) Outcome {
	if p.state != Open {
		return Outcome{Price: price}
	}

	// Forced square-off takes priority over every other rule,
	// including a stop adjustment this same observation would earn.
	if eod {
		return Outcome{Close: true, State: ClosedEod, Price: price}
	}

	if p.stopHit(price) {
		return Outcome{Close: true, State: ClosedStop, Price: price}
	}

	moved := false
	if p.favorable(price) > p.favorable(p.MaxFavorable) {
		p.MaxFavorable = price
	}
	profit := p.ProfitPct(price)

	// Breakeven: once the trigger profit prints, the trade can no
	// longer turn into a loss.
	if profit >= p.cfg.BreakevenTriggerPct-floatTol && p.wouldTighten(p.Entry) {
		p.Stop = p.Entry
		moved = true
	}

	// Trailing ladder: each frequency step beyond the breakeven
	// trigger lifts the stop one increment past entry. Rungs are
	// never descended, and a rung whose level would loosen the stop
	// is skipped.
	for k := p.trailStep + 1; profit >= p.cfg.BreakevenTriggerPct+float64(k)*p.cfg.TrailFrequencyPct-floatTol; k++ {
		rung := p.rungLevel(k)
		if p.wouldTighten(rung) {
			p.Stop = rung
			moved = true
		}
		p.trailStep = k
	}

	// Giveback guard: once breakeven has engaged, never surrender
	// more than the configured fraction of the peak gain. A pct of 1
	// permits giving back the whole gain, which reduces to the
	// breakeven stop and so never tightens anything.
	if p.givebackArmed() {
		guard := p.givebackLevel()
		if p.wouldTighten(guard) {
			p.Stop = guard
			moved = true
		}
	}

	if p.targetHit(price) {
		return Outcome{Close: true, State: ClosedTarget, Price: price, StopMoved: moved}
	}
	return Outcome{Price: price, StopMoved: moved}
}

// Close confirms the terminal state after the exit order has filled.
// It is an error to close a position twice or with a non-terminal
// state.
func (p *Position) Close(state State, fillPrice float64, now time.Time) error {
	if p.state != Open {
		return fmt.Errorf("position %s: close in state %s", p.ID, p.state)
	}
	if !state.Terminal() {
		return fmt.Errorf("position %s: %s is not a terminal state", p.ID, state)
	}
	p.state = state
	p.ExitPrice = fillPrice
	p.ExitTime = now
	return nil
}

// RealizedPL is the signed P&L of a closed position. Zero until closed.
func (p *Position) RealizedPL() float64 {
	if !p.state.Terminal() {
		return 0
	}
	return p.UnrealizedPL(p.ExitPrice)
}

// Value is the notional deployed at entry.
func (p *Position) Value() float64 {
	return p.Entry * float64(p.Qty)
}

func (p *Position) stopHit(price float64) bool {
	if p.Side == Long {
		return price <= p.Stop
	}
	return price >= p.Stop
}

func (p *Position) targetHit(price float64) bool {
	if p.Target == 0 {
		return false
	}
	if p.Side == Long {
		return price >= p.Target
	}
	return price <= p.Target
}

// wouldTighten reports whether moving the stop to level narrows the
// distance to price in the favorable direction.
func (p *Position) wouldTighten(level float64) bool {
	if p.Side == Long {
		return level > p.Stop
	}
	return level < p.Stop
}

// favorable maps a price onto an axis where larger is better for this
// side, so max-favorable tracking reads the same for both directions.
func (p *Position) favorable(price float64) float64 {
	if p.Side == Long {
		return price
	}
	return -price
}

func (p *Position) rungLevel(k int) float64 {
	if p.Side == Long {
		return p.Entry * (1 + float64(k)*p.cfg.TrailIncrementPct)
	}
	return p.Entry * (1 - float64(k)*p.cfg.TrailIncrementPct)
}

func (p *Position) givebackArmed() bool {
	// 0 would pin the stop to the peak and 1 reduces to breakeven;
	// both disable the guard.
	if p.cfg.GivebackPct <= 0 || p.cfg.GivebackPct >= 1 {
		return false
	}
	if p.Side == Long {
		return p.Stop >= p.Entry && p.MaxFavorable > p.Entry
	}
	return p.Stop <= p.Entry && p.MaxFavorable < p.Entry
}

func (p *Position) givebackLevel() float64 {
	if p.Side == Long {
		return p.MaxFavorable - (p.MaxFavorable-p.Entry)*p.cfg.GivebackPct
	}
	return p.MaxFavorable + (p.Entry-p.MaxFavorable)*p.cfg.GivebackPct
}
