package signal

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/intrabot/market"
	"github.com/quantrail/intrabot/regime"
	"github.com/quantrail/intrabot/risk"
)

type fakeAuth struct {
	decision risk.Decision
	room     float64
	calls    []float64
}

func (f *fakeAuth) AuthorizeEntry(v float64) risk.Decision {
	f.calls = append(f.calls, v)
	return f.decision
}

func (f *fakeAuth) CapitalRoom() float64 { return f.room }

type fakePicker struct {
	inst  market.Instrument
	quote market.Quote
	err   error

	gotType market.OptionType
	gotSpot float64
}

func (f *fakePicker) Pick(typ market.OptionType, spot float64) (market.Instrument, market.Quote, error) {
	f.gotType = typ
	f.gotSpot = spot
	return f.inst, f.quote, f.err
}

func allowAll() *fakeAuth {
	return &fakeAuth{decision: risk.Decision{Allowed: true}, room: 50000}
}

func liquidPicker() *fakePicker {
	return &fakePicker{
		inst: market.Instrument{
			Symbol: "NIFTY2490524500CE", Underlying: "NIFTY",
			Strike: 24500, Type: market.Call, LotSize: 75,
		},
		quote: market.Quote{
			Symbol: "NIFTY2490524500CE",
			Bid:    99.6, Ask: 100.4, LTP: 100, OpenInterest: 500000,
		},
	}
}

func sidewaysOversold() Input {
	return Input{
		Regime: regime.Sideways,
		Snap: market.Snapshot{
			Candle: market.Candle{
				Time:  time.Date(2024, 9, 2, 10, 30, 0, 0, time.UTC),
				Close: 24400,
			},
			VWAP: 24500, // −0.41% deviation
			RSI:  25,
			ATR:  10,
		},
	}
}

func newTestGate(auth Authorizer, picker OptionPicker) *Gate {
	return NewGate(DefaultConfig(), auth, picker, zerolog.Nop())
}

func TestSidewaysReversionEmitsSignal(t *testing.T) {
	auth := allowAll()
	picker := liquidPicker()
	g := newTestGate(auth, picker)

	sig, rej := g.Evaluate(sidewaysOversold())
	require.Nil(t, rej)
	require.NotNil(t, sig)

	assert.Equal(t, Bullish, sig.Direction)
	assert.Equal(t, market.Call, picker.gotType)
	assert.InDelta(t, 24400, picker.gotSpot, 1e-9)
	assert.InDelta(t, 15, sig.StopDistance, 1e-9)   // ATR 10 × 1.5
	assert.InDelta(t, 30, sig.TargetDistance, 1e-9) // ATR 10 × 3
	// Budget 2000 / stop 15 = 133, floored to one lot of 75.
	assert.Equal(t, 75, sig.Qty)
	assert.InDelta(t, 7500, sig.Value(), 1e-9)
	assert.NotEmpty(t, sig.ID)

	// Final authorization saw the sized notional.
	require.Len(t, auth.calls, 2)
	assert.InDelta(t, 7500, auth.calls[1], 1e-9)
}

func TestSidewaysOverboughtGoesBearish(t *testing.T) {
	picker := liquidPicker()
	g := newTestGate(allowAll(), picker)

	in := sidewaysOversold()
	in.Snap.Close = 24600
	in.Snap.VWAP = 24500
	in.Snap.RSI = 75

	sig, rej := g.Evaluate(in)
	require.Nil(t, rej)
	assert.Equal(t, Bearish, sig.Direction)
	assert.Equal(t, market.Put, picker.gotType)
}

func TestDuplicateCandleRejected(t *testing.T) {
	g := newTestGate(allowAll(), liquidPicker())

	in := sidewaysOversold()
	sig, rej := g.Evaluate(in)
	require.Nil(t, rej)
	require.NotNil(t, sig)

	sig, rej = g.Evaluate(in)
	assert.Nil(t, sig)
	require.NotNil(t, rej)
	assert.Equal(t, CodeDuplicateCandle, rej.Code)
	assert.Equal(t, "duplicate_candle", rej.Reason)

	// A rejection does not consume the candle id; only emission does.
	g2 := newTestGate(allowAll(), liquidPicker())
	in2 := sidewaysOversold()
	in2.Snap.RSI = 50 // no setup
	_, rej = g2.Evaluate(in2)
	require.Equal(t, CodeNoSetup, rej.Code)
	in2.Snap.RSI = 25
	sig, rej = g2.Evaluate(in2)
	require.Nil(t, rej)
	assert.NotNil(t, sig)
}

func TestResetClearsDeduplication(t *testing.T) {
	g := newTestGate(allowAll(), liquidPicker())
	_, rej := g.Evaluate(sidewaysOversold())
	require.Nil(t, rej)

	g.Reset()
	sig, rej := g.Evaluate(sidewaysOversold())
	require.Nil(t, rej)
	assert.NotNil(t, sig)
}

func TestOpenPositionRejected(t *testing.T) {
	g := newTestGate(allowAll(), liquidPicker())
	in := sidewaysOversold()
	in.PositionOpen = true

	sig, rej := g.Evaluate(in)
	assert.Nil(t, sig)
	require.NotNil(t, rej)
	assert.Equal(t, CodePositionOpen, rej.Code)
}

func TestRiskDenialPassedThrough(t *testing.T) {
	auth := &fakeAuth{decision: risk.Decision{
		Allowed: false, Code: risk.CodeBreakerTripped, Reason: "daily loss limit breached",
	}}
	g := newTestGate(auth, liquidPicker())

	sig, rej := g.Evaluate(sidewaysOversold())
	assert.Nil(t, sig)
	require.NotNil(t, rej)
	assert.Equal(t, CodeRiskDenied, rej.Code)
	assert.Equal(t, "daily loss limit breached", rej.Reason)
}

func TestLiquidityScreens(t *testing.T) {
	picker := liquidPicker()
	picker.quote.OpenInterest = 5000
	g := newTestGate(allowAll(), picker)
	_, rej := g.Evaluate(sidewaysOversold())
	require.NotNil(t, rej)
	assert.Equal(t, CodeLowOpenInterest, rej.Code)

	picker = liquidPicker()
	picker.quote.Bid = 95
	picker.quote.Ask = 105 // >10% spread
	g = newTestGate(allowAll(), picker)
	_, rej = g.Evaluate(sidewaysOversold())
	require.NotNil(t, rej)
	assert.Equal(t, CodeWideSpread, rej.Code)
}

func TestSpreadScreenUsesFractionalUnits(t *testing.T) {
	// Bid 100, ask 100.9 is a 0.9% spread, inside the default 1% cap.
	picker := liquidPicker()
	picker.quote.Bid = 100
	picker.quote.Ask = 100.9
	g := newTestGate(allowAll(), picker)
	sig, rej := g.Evaluate(sidewaysOversold())
	require.Nil(t, rej)
	require.NotNil(t, sig)

	// Bid 100, ask 101.2 is 1.2% and gets screened.
	picker = liquidPicker()
	picker.quote.Bid = 100
	picker.quote.Ask = 101.2
	g = newTestGate(allowAll(), picker)
	_, rej = g.Evaluate(sidewaysOversold())
	require.NotNil(t, rej)
	assert.Equal(t, CodeWideSpread, rej.Code)
}

func TestPickerFailureIsDataUnavailable(t *testing.T) {
	picker := liquidPicker()
	picker.err = errors.New("instrument dump stale")
	g := newTestGate(allowAll(), picker)

	_, rej := g.Evaluate(sidewaysOversold())
	require.NotNil(t, rej)
	assert.Equal(t, CodeDataUnavailable, rej.Code)
}

func TestTrendingPullbackResumption(t *testing.T) {
	prev := market.Snapshot{
		Candle: market.Candle{
			Time: time.Date(2024, 9, 2, 10, 25, 0, 0, time.UTC),
			High: 24520, Low: 24480, Close: 24500,
		},
		VWAP: 24490, // prior bar dipped to the reference
	}
	in := Input{
		Regime: regime.Trending,
		Prev:   prev,
		Snap: market.Snapshot{
			Candle: market.Candle{
				Time:  time.Date(2024, 9, 2, 10, 30, 0, 0, time.UTC),
				Close: 24530, // resumption above the pullback bar's high
			},
			VWAP: 24495, EMAFast: 24510, EMASlow: 24470,
			ATR: 10, ADX: 28, SupertrendBull: true,
		},
	}

	picker := liquidPicker()
	g := newTestGate(allowAll(), picker)
	sig, rej := g.Evaluate(in)
	require.Nil(t, rej)
	assert.Equal(t, Bullish, sig.Direction)

	// Same structure without the resumption close is no setup.
	in.Snap.Close = 24510
	in.Snap.Time = in.Snap.Time.Add(5 * time.Minute)
	_, rej = g.Evaluate(in)
	require.NotNil(t, rej)
	assert.Equal(t, CodeNoSetup, rej.Code)

	// Weak trend strength is filtered even with the right shape.
	in.Snap.Close = 24530
	in.Snap.ADX = 12
	in.Snap.Time = in.Snap.Time.Add(5 * time.Minute)
	_, rej = g.Evaluate(in)
	require.NotNil(t, rej)
	assert.Equal(t, CodeNoSetup, rej.Code)
}

func TestUndeterminedRegimeNoSetup(t *testing.T) {
	g := newTestGate(allowAll(), liquidPicker())
	in := sidewaysOversold()
	in.Regime = regime.Undetermined

	_, rej := g.Evaluate(in)
	require.NotNil(t, rej)
	assert.Equal(t, CodeNoSetup, rej.Code)
}

func TestSizingRespectsCapitalRoom(t *testing.T) {
	auth := allowAll()
	auth.room = 10000 // two lots at premium 100 would need 15000

	cfg := DefaultConfig()
	cfg.SLMultiplier = 1.3 // budget 2000 / 13 = 153, floored to 150 before the cap
	g := NewGate(cfg, auth, liquidPicker(), zerolog.Nop())

	sig, rej := g.Evaluate(sidewaysOversold())
	require.Nil(t, rej)
	assert.Equal(t, 75, sig.Qty)
}

func TestSizingBelowOneLotRejected(t *testing.T) {
	auth := allowAll()
	auth.room = 1000 // one lot at premium 100 needs 7500
	g := newTestGate(auth, liquidPicker())

	sig, rej := g.Evaluate(sidewaysOversold())
	assert.Nil(t, sig)
	require.NotNil(t, rej)
	assert.Equal(t, CodeZeroQuantity, rej.Code)
}
