package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/intrabot/market"
)

func writeCandleFile(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(rows), 0o644))
	return path
}

func TestLoadCandlesCSV(t *testing.T) {
	path := writeCandleFile(t,
		"time,open,high,low,close,volume\n"+
			"2024-09-02T10:20:00Z,24510,24530,24500,24520,900\n"+
			"2024-09-02T10:15:00Z,24500,24520,24490,24510,1000\n")

	candles, err := LoadCandlesCSV(path)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	// Out-of-order rows come back time-sorted.
	assert.True(t, candles[0].Time.Before(candles[1].Time))
	assert.InDelta(t, 24500, candles[0].Open, 1e-9)
	assert.InDelta(t, 900, candles[1].Volume, 1e-9)
}

func TestLoadCandlesCSVRejectsBadRows(t *testing.T) {
	path := writeCandleFile(t, "2024-09-02T10:15:00Z,24500,bad,24490,24510,1000\n")
	_, err := LoadCandlesCSV(path)
	assert.Error(t, err)

	path = writeCandleFile(t, "time,open,high,low,close,volume\n")
	_, err = LoadCandlesCSV(path)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestReplayPlaysInOrderAndExhausts(t *testing.T) {
	start := time.Date(2024, 9, 2, 9, 15, 0, 0, time.UTC)
	var candles []market.Candle
	for i := 0; i < 25; i++ {
		px := 24500 + float64(i)*10
		candles = append(candles, market.Candle{
			Time: start.Add(time.Duration(i) * 5 * time.Minute),
			Open: px, High: px + 8, Low: px - 4, Close: px + 5, Volume: 1000,
		})
	}

	r := NewReplay(candles, DefaultIndicatorConfig())
	ctx := context.Background()

	var last market.Snapshot
	for i := 0; i < len(candles); i++ {
		snap, err := r.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, candles[i].Time, snap.Time)
		last = snap
	}
	assert.Zero(t, r.Remaining())

	// After 25 candles the pipeline is warm: VWAP, EMAs, RSI and ATR
	// all carry values on the final snapshot.
	assert.Greater(t, last.VWAP, 0.0)
	assert.Greater(t, last.EMAFast, 0.0)
	assert.Greater(t, last.EMASlow, 0.0)
	assert.Greater(t, last.RSI, 0.0)
	assert.Greater(t, last.ATR, 0.0)
	// Steady rise keeps the fast EMA above the slow one.
	assert.Greater(t, last.EMAFast, last.EMASlow)

	_, err := r.Next(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReplayHonorsContext(t *testing.T) {
	r := NewReplay([]market.Candle{{Time: time.Now()}}, DefaultIndicatorConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReplayCloseStopsPlayback(t *testing.T) {
	r := NewReplay([]market.Candle{{Time: time.Now()}}, DefaultIndicatorConfig())
	require.NoError(t, r.Close())
	_, err := r.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func newDisconnectedLive(cfg LiveConfig) *Live {
	// Built by hand so no read loop dials anything.
	return &Live{
		cfg:     cfg,
		pipe:    newPipeline(cfg.Indicators),
		log:     zerolog.Nop(),
		candles: make(chan market.Candle, 16),
		done:    make(chan struct{}),
	}
}

func TestLiveAggregatesTicksIntoCandles(t *testing.T) {
	cfg := DefaultLiveConfig("ws://unused")
	cfg.Interval = 5 * time.Minute
	l := newDisconnectedLive(cfg)

	base := time.Date(2024, 9, 2, 10, 15, 0, 0, time.UTC)
	l.ingest(tickMsg{LTP: 24500, Volume: 10, TS: base.UnixMilli()})
	l.ingest(tickMsg{LTP: 24530, Volume: 5, TS: base.Add(time.Minute).UnixMilli()})
	l.ingest(tickMsg{LTP: 24490, Volume: 5, TS: base.Add(2 * time.Minute).UnixMilli()})
	// Crossing the interval boundary emits the finished candle.
	l.ingest(tickMsg{LTP: 24510, Volume: 7, TS: base.Add(5 * time.Minute).UnixMilli()})

	select {
	case c := <-l.candles:
		assert.Equal(t, base, c.Time)
		assert.InDelta(t, 24500, c.Open, 1e-9)
		assert.InDelta(t, 24530, c.High, 1e-9)
		assert.InDelta(t, 24490, c.Low, 1e-9)
		assert.InDelta(t, 24490, c.Close, 1e-9)
		assert.InDelta(t, 20, c.Volume, 1e-9)
	default:
		t.Fatal("expected a completed candle")
	}
}

func TestLiveIgnoresBogusTicks(t *testing.T) {
	l := newDisconnectedLive(DefaultLiveConfig("ws://unused"))
	l.ingest(tickMsg{LTP: 0, TS: time.Now().UnixMilli()})
	assert.False(t, l.buildingSet)
}

func TestLiveNextReportsStaleStream(t *testing.T) {
	cfg := DefaultLiveConfig("ws://unused")
	cfg.Interval = 10 * time.Millisecond
	cfg.StaleAfter = 10 * time.Millisecond
	l := newDisconnectedLive(cfg)

	_, err := l.Next(context.Background())
	assert.ErrorIs(t, err, ErrStaleData)
}
