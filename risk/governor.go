package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the governor's durable bookkeeping for one trading day. It is
// persisted on every mutation so a process restart resumes mid-session
// with the same limits standing.
type State struct {
	Day               string  `json:"day"`
	DailyPnL          float64 `json:"daily_pnl"`
	TradeCount        int     `json:"trade_count"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	Winners           int     `json:"winners"`
	Losers            int     `json:"losers"`
	CapitalDeployed   float64 `json:"capital_deployed"`
	BreakerTripped    bool    `json:"breaker_tripped"`
	KillSwitch        bool    `json:"kill_switch"`
	KillReason        string  `json:"kill_reason"`
	CloseRequested    bool    `json:"close_requested"`
}

// StateStore durably persists governor state across process restarts.
// Implementations must treat Save as the authoritative copy: the
// governor fails closed when the store misbehaves.
type StateStore interface {
	Load(day string) (State, bool, error)
	Save(State) error
}

// CloseResult is what a finished position reports back to the governor.
type CloseResult struct {
	PositionValue float64
	RealizedPL    float64
}

// Governor is the account-level gate. Every entry consults
// AuthorizeEntry; every close reports through RecordClose. All methods
// are safe for concurrent use, though the engine serializes them per
// tick anyway.
type Governor struct {
	mu     sync.Mutex
	limits Limits
	state  State
	store  StateStore
	log    zerolog.Logger

	// degraded latches when the store fails; authorization then denies
	// until an explicit session reset succeeds.
	degraded bool
}

// NewGovernor loads (or initializes) state for the given day. A store
// read failure does not abort construction: the governor comes up
// degraded, which denies all entries but leaves exit paths alone.
func NewGovernor(limits Limits, store StateStore, day time.Time, log zerolog.Logger) *Governor {
	g := &Governor{
		limits: limits,
		store:  store,
		log:    log.With().Str("component", "risk").Logger(),
	}
	dayKey := day.Format("2006-01-02")

	st, ok, err := store.Load(dayKey)
	switch {
	case err != nil:
		g.degraded = true
		g.state = State{Day: dayKey}
		g.log.Error().Err(err).Msg("risk state unavailable, failing closed")
	case ok:
		g.state = st
		g.log.Info().
			Float64("daily_pnl", st.DailyPnL).
			Int("trades", st.TradeCount).
			Bool("breaker", st.BreakerTripped).
			Bool("kill_switch", st.KillSwitch).
			Msg("risk state restored")
	default:
		g.state = State{Day: dayKey}
		g.persist()
	}
	return g
}

// AuthorizeEntry decides whether a new position of the given notional
// value may be opened. Checks are ordered from hard overrides down to
// soft capacity limits so the denial code reflects the most severe
// standing condition.
func (g *Governor) AuthorizeEntry(candidateValue float64) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.degraded {
		return deny(CodeStateUnavailable, "risk state unavailable; trading suspended")
	}
	if g.state.KillSwitch {
		return deny(CodeKillSwitch, fmt.Sprintf("kill switch active: %s", g.state.KillReason))
	}
	if g.state.BreakerTripped {
		return deny(CodeBreakerTripped, "circuit breaker tripped for the session")
	}
	if g.state.TradeCount >= g.limits.MaxTradesPerDay {
		return deny(CodeMaxTrades,
			fmt.Sprintf("trade count %d at daily limit %d", g.state.TradeCount, g.limits.MaxTradesPerDay))
	}
	if g.state.DailyPnL <= -g.limits.MaxDailyLoss {
		return deny(CodeDailyLossLimit,
			fmt.Sprintf("daily pnl %.2f at loss limit %.2f", g.state.DailyPnL, -g.limits.MaxDailyLoss))
	}
	if g.state.ConsecutiveLosses >= g.limits.MaxConsecutiveLosses {
		return deny(CodeConsecutiveLosses,
			fmt.Sprintf("%d consecutive losses, cool-off in effect", g.state.ConsecutiveLosses))
	}
	if g.state.CapitalDeployed+candidateValue > g.limits.MaxCapitalDeployed {
		return deny(CodeCapitalDeployed,
			fmt.Sprintf("deploying %.2f would exceed cap %.2f (%.2f already deployed)",
				candidateValue, g.limits.MaxCapitalDeployed, g.state.CapitalDeployed))
	}
	return allow()
}

// CapitalRoom is the notional value still deployable under the
// capital cap. Zero when degraded, fully deployed or over.
func (g *Governor) CapitalRoom() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.degraded {
		return 0
	}
	room := g.limits.MaxCapitalDeployed - g.state.CapitalDeployed
	if room < 0 {
		return 0
	}
	return room
}

// RecordOpen registers capital deployed into a confirmed entry fill.
func (g *Governor) RecordOpen(positionValue float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.CapitalDeployed += positionValue
	g.persist()
}

// RecordClose books a finished trade exactly once: realized P&L, trade
// count, streak tracking and capital release. Trips the breaker when
// the daily loss limit is breached; the trip is terminal for the
// session.
func (g *Governor) RecordClose(res CloseResult) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.DailyPnL += res.RealizedPL
	g.state.TradeCount++
	g.state.CapitalDeployed -= res.PositionValue
	if g.state.CapitalDeployed < 0 {
		g.state.CapitalDeployed = 0
	}

	if res.RealizedPL > 0 {
		g.state.Winners++
		g.state.ConsecutiveLosses = 0
	} else {
		g.state.Losers++
		g.state.ConsecutiveLosses++
	}

	if !g.state.BreakerTripped && g.state.DailyPnL <= -g.limits.MaxDailyLoss {
		g.state.BreakerTripped = true
		g.log.Error().
			Float64("daily_pnl", g.state.DailyPnL).
			Float64("limit", g.limits.MaxDailyLoss).
			Msg("daily loss limit breached, circuit breaker tripped")
	}

	g.log.Info().
		Float64("realized_pl", res.RealizedPL).
		Float64("daily_pnl", g.state.DailyPnL).
		Int("trades", g.state.TradeCount).
		Int("consecutive_losses", g.state.ConsecutiveLosses).
		Msg("trade close recorded")

	g.persist()
}

// ResetForNewSession clears all counters and the breaker at an explicit
// session boundary. The kill switch survives a reset; it only clears
// through DeactivateKillSwitch.
func (g *Governor) ResetForNewSession(day time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	kill, reason := g.state.KillSwitch, g.state.KillReason
	g.state = State{
		Day:        day.Format("2006-01-02"),
		KillSwitch: kill,
		KillReason: reason,
	}
	if err := g.store.Save(g.state); err != nil {
		g.degraded = true
		return fmt.Errorf("persist session reset: %w", err)
	}
	g.degraded = false
	g.log.Info().Str("day", g.state.Day).Msg("risk state reset for new session")
	return nil
}

// ActivateKillSwitch halts all new entries until explicitly cleared.
// The flag is persisted so it survives restarts.
func (g *Governor) ActivateKillSwitch(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.KillSwitch = true
	g.state.KillReason = reason
	g.log.Warn().Str("reason", reason).Msg("kill switch activated")
	g.persist()
}

// DeactivateKillSwitch clears the manual override.
func (g *Governor) DeactivateKillSwitch(authorizedBy string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.KillSwitch = false
	g.state.KillReason = ""
	g.log.Warn().Str("authorized_by", authorizedBy).Msg("kill switch deactivated")
	g.persist()
}

// RequestManualClose sets the persisted close-request flag. The engine
// picks it up on its next refresh and force-closes any open position.
func (g *Governor) RequestManualClose() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.CloseRequested = true
	g.persist()
}

// ClearCloseRequest acknowledges a manual close request.
func (g *Governor) ClearCloseRequest() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.CloseRequested = false
	g.persist()
}

// Refresh re-reads persisted state so operator commands issued from a
// separate process (kill switch, close request) take effect without a
// restart. In-memory counters win over stale disk copies for the
// sub-second window between persist calls, so only the operator flags
// are folded in.
func (g *Governor) Refresh() {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok, err := g.store.Load(g.state.Day)
	if err != nil {
		g.degraded = true
		g.log.Error().Err(err).Msg("risk state refresh failed, failing closed")
		return
	}
	if !ok {
		return
	}
	g.state.KillSwitch = st.KillSwitch
	g.state.KillReason = st.KillReason
	g.state.CloseRequested = st.CloseRequested
}

// Snapshot returns a copy of the current state for monitoring and
// journaling.
func (g *Governor) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Limits returns the configured limits.
func (g *Governor) Limits() Limits {
	return g.limits
}

// Degraded reports whether persistence has failed and the governor is
// denying all entries.
func (g *Governor) Degraded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.degraded
}

func (g *Governor) persist() {
	if err := g.store.Save(g.state); err != nil {
		g.degraded = true
		g.log.Error().Err(err).Msg("risk state persist failed, failing closed")
	}
}
