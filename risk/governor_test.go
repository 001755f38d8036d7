package risk

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2026, 8, 3, 9, 15, 0, 0, time.UTC)

// memStore is an in-memory StateStore with switchable failure modes.
type memStore struct {
	st      State
	has     bool
	failGet bool
	failPut bool
}

func (m *memStore) Load(day string) (State, bool, error) {
	if m.failGet {
		return State{}, false, errors.New("store offline")
	}
	return m.st, m.has, nil
}

func (m *memStore) Save(st State) error {
	if m.failPut {
		return errors.New("store offline")
	}
	m.st = st
	m.has = true
	return nil
}

func newTestGovernor(limits Limits) (*Governor, *memStore) {
	store := &memStore{}
	return NewGovernor(limits, store, testDay, zerolog.Nop()), store
}

func TestAuthorizeEntry_TradeCountCap(t *testing.T) {
	t.Parallel()

	limits := DefaultLimits()
	limits.MaxTradesPerDay = 5
	limits.MaxConsecutiveLosses = 100
	g, _ := newTestGovernor(limits)

	for i := 0; i < 5; i++ {
		d := g.AuthorizeEntry(1000)
		require.True(t, d.Allowed, "trade %d should be allowed", i+1)
		g.RecordOpen(1000)
		g.RecordClose(CloseResult{PositionValue: 1000, RealizedPL: 10})
	}

	d := g.AuthorizeEntry(1000)
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeMaxTrades, d.Code)
}

func TestAuthorizeEntry_DailyLossBreakerLatches(t *testing.T) {
	t.Parallel()

	limits := DefaultLimits()
	limits.MaxDailyLoss = 5000
	limits.MaxConsecutiveLosses = 100
	g, _ := newTestGovernor(limits)

	g.RecordOpen(20000)
	g.RecordClose(CloseResult{PositionValue: 20000, RealizedPL: -5000})

	d := g.AuthorizeEntry(1000)
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeBreakerTripped, d.Code)
	assert.True(t, g.Snapshot().BreakerTripped)

	// A later winning day-trade cannot untrip the breaker.
	g.RecordClose(CloseResult{PositionValue: 0, RealizedPL: 6000})
	d = g.AuthorizeEntry(1000)
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeBreakerTripped, d.Code)
}

func TestAuthorizeEntry_ConsecutiveLossCoolOff(t *testing.T) {
	t.Parallel()

	limits := DefaultLimits()
	limits.MaxConsecutiveLosses = 2
	limits.MaxDailyLoss = 1e9
	g, _ := newTestGovernor(limits)

	g.RecordClose(CloseResult{PositionValue: 1000, RealizedPL: -100})
	require.True(t, g.AuthorizeEntry(1000).Allowed)

	g.RecordClose(CloseResult{PositionValue: 1000, RealizedPL: -100})
	d := g.AuthorizeEntry(1000)
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeConsecutiveLosses, d.Code)

	// An explicit session reset clears the cool-off.
	require.NoError(t, g.ResetForNewSession(testDay.Add(24*time.Hour)))
	assert.True(t, g.AuthorizeEntry(1000).Allowed)
}

func TestAuthorizeEntry_WinResetsStreak(t *testing.T) {
	t.Parallel()

	limits := DefaultLimits()
	limits.MaxConsecutiveLosses = 2
	limits.MaxDailyLoss = 1e9
	g, _ := newTestGovernor(limits)

	g.RecordClose(CloseResult{PositionValue: 1000, RealizedPL: -100})
	g.RecordClose(CloseResult{PositionValue: 1000, RealizedPL: 500})
	g.RecordClose(CloseResult{PositionValue: 1000, RealizedPL: -100})

	assert.True(t, g.AuthorizeEntry(1000).Allowed)
	assert.Equal(t, 1, g.Snapshot().ConsecutiveLosses)
}

func TestAuthorizeEntry_CapitalDeploymentCap(t *testing.T) {
	t.Parallel()

	limits := DefaultLimits()
	limits.MaxCapitalDeployed = 50000
	g, _ := newTestGovernor(limits)

	g.RecordOpen(45000)
	d := g.AuthorizeEntry(10000)
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeCapitalDeployed, d.Code)

	assert.True(t, g.AuthorizeEntry(5000).Allowed)
}

func TestKillSwitch_PersistsAndSurvivesReset(t *testing.T) {
	t.Parallel()

	g, store := newTestGovernor(DefaultLimits())
	g.ActivateKillSwitch("operator halt")

	d := g.AuthorizeEntry(1000)
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeKillSwitch, d.Code)
	assert.True(t, store.st.KillSwitch)

	require.NoError(t, g.ResetForNewSession(testDay.Add(24*time.Hour)))
	d = g.AuthorizeEntry(1000)
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeKillSwitch, d.Code)

	g.DeactivateKillSwitch("operator")
	assert.True(t, g.AuthorizeEntry(1000).Allowed)
}

func TestFailClosed_LoadFailure(t *testing.T) {
	t.Parallel()

	store := &memStore{failGet: true}
	g := NewGovernor(DefaultLimits(), store, testDay, zerolog.Nop())

	d := g.AuthorizeEntry(1000)
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeStateUnavailable, d.Code)
	assert.True(t, g.Degraded())
}

func TestFailClosed_SaveFailure(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	g := NewGovernor(DefaultLimits(), store, testDay, zerolog.Nop())
	require.True(t, g.AuthorizeEntry(1000).Allowed)

	store.failPut = true
	g.RecordClose(CloseResult{PositionValue: 1000, RealizedPL: 100})

	d := g.AuthorizeEntry(1000)
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeStateUnavailable, d.Code)

	// Recovery only via a reset that persists successfully.
	store.failPut = false
	require.NoError(t, g.ResetForNewSession(testDay.Add(24*time.Hour)))
	assert.True(t, g.AuthorizeEntry(1000).Allowed)
}

func TestRefresh_PicksUpOperatorFlags(t *testing.T) {
	t.Parallel()

	g, store := newTestGovernor(DefaultLimits())

	// Simulate a separate process flipping the persisted flags.
	store.st.KillSwitch = true
	store.st.KillReason = "ops"
	store.st.CloseRequested = true

	g.Refresh()
	st := g.Snapshot()
	assert.True(t, st.KillSwitch)
	assert.True(t, st.CloseRequested)
	assert.False(t, g.AuthorizeEntry(1000).Allowed)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "risk.sqlite")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Load("2026-08-03")
	require.NoError(t, err)
	assert.False(t, ok)

	want := State{
		Day:               "2026-08-03",
		DailyPnL:          -1250.5,
		TradeCount:        3,
		ConsecutiveLosses: 2,
		Winners:           1,
		Losers:            2,
		CapitalDeployed:   30000,
		BreakerTripped:    true,
		KillSwitch:        true,
		KillReason:        "weekly loss",
	}
	require.NoError(t, store.Save(want))

	// Upsert on the same day.
	want.TradeCount = 4
	require.NoError(t, store.Save(want))

	got, ok, err := store.Load("2026-08-03")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}
