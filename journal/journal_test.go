package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrade(id string, exit time.Time, pl float64) TradeRecord {
	return TradeRecord{
		TradeID:    id,
		Symbol:     "NIFTY2490524500CE",
		Direction:  "bullish",
		Qty:        75,
		EntryPrice: 100,
		ExitPrice:  100 + pl/75,
		EntryTime:  exit.Add(-30 * time.Minute),
		ExitTime:   exit,
		Reason:     "closed_stop",
		RealizedPL: pl,
	}
}

func sampleSignal(id string, ts time.Time, accepted bool) SignalEvent {
	e := SignalEvent{
		SignalID:  id,
		CandleID:  ts.UTC().Format("20060102T150405"),
		Time:      ts,
		Regime:    "sideways",
		Direction: "bullish",
		Symbol:    "NIFTY2490524500CE",
		RefPrice:  100,
		Qty:       75,
		Accepted:  accepted,
	}
	if !accepted {
		e.RejectCode = "duplicate_candle"
		e.Reason = "duplicate_candle"
	}
	return e
}

func TestSQLiteRoundTrip(t *testing.T) {
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	exit := time.Date(2024, 9, 2, 11, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleTrade("T1", exit, 300)))
	require.NoError(t, j.RecordSignal(sampleSignal("S1", exit.Add(-30*time.Minute), true)))
	require.NoError(t, j.RecordSignal(sampleSignal("S2", exit.Add(-25*time.Minute), false)))

	rec, err := j.GetTrade("T1")
	require.NoError(t, err)
	assert.Equal(t, "NIFTY2490524500CE", rec.Symbol)
	assert.InDelta(t, 300, rec.RealizedPL, 1e-9)
	assert.Equal(t, "closed_stop", rec.Reason)

	_, err = j.GetTrade("missing")
	assert.Error(t, err)

	day := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	sigs, err := j.ListSignals(day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.True(t, sigs[0].Accepted)
	assert.Equal(t, "duplicate_candle", sigs[1].RejectCode)
}

func TestSQLiteSummarize(t *testing.T) {
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	day := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleTrade("T1", day.Add(10*time.Hour), 300)))
	require.NoError(t, j.RecordTrade(sampleTrade("T2", day.Add(11*time.Hour), -500)))
	require.NoError(t, j.RecordTrade(sampleTrade("T3", day.Add(12*time.Hour), 150)))
	// A trade on another day stays out of the summary.
	require.NoError(t, j.RecordTrade(sampleTrade("T4", day.AddDate(0, 0, 1).Add(10*time.Hour), 999)))

	s, err := j.Summarize(day.Add(13 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, -50, s.NetPL, 1e-9)
	assert.InDelta(t, 300, s.BestTrade, 1e-9)
	assert.InDelta(t, -500, s.WorstPL, 1e-9)
}

func TestCSVWritesRows(t *testing.T) {
	dir := t.TempDir()
	signalsPath := filepath.Join(dir, "signals.csv")
	tradesPath := filepath.Join(dir, "trades.csv")

	j, err := NewCSV(signalsPath, tradesPath)
	require.NoError(t, err)

	exit := time.Date(2024, 9, 2, 11, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordSignal(sampleSignal("S1", exit.Add(-30*time.Minute), true)))
	require.NoError(t, j.RecordTrade(sampleTrade("T1", exit, 300)))
	require.NoError(t, j.Close())

	tf, err := os.Open(tradesPath)
	require.NoError(t, err)
	defer tf.Close()
	rows, err := csv.NewReader(tf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2) // header + one trade
	assert.Equal(t, "T1", rows[1][0])
	assert.Equal(t, "300", rows[1][9])

	sf, err := os.Open(signalsPath)
	require.NoError(t, err)
	defer sf.Close()
	srows, err := csv.NewReader(sf).ReadAll()
	require.NoError(t, err)
	require.Len(t, srows, 2)
	assert.Equal(t, "S1", srows[1][0])
	assert.Equal(t, "true", srows[1][8])
}
