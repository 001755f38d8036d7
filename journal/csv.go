package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSV writes signals and trades to two flat files, one row per event.
// Used by replay runs where a grep-able artifact beats a database.
type CSV struct {
	signals *csv.Writer
	trades  *csv.Writer
	sf, tf  *os.File
}

func NewCSV(signalsPath, tradesPath string) (*CSV, error) {
	sf, err := os.Create(signalsPath)
	if err != nil {
		return nil, err
	}
	tf, err := os.Create(tradesPath)
	if err != nil {
		sf.Close()
		return nil, err
	}

	sw := csv.NewWriter(sf)
	tw := csv.NewWriter(tf)

	sw.Write([]string{"signal_id", "candle_id", "time", "regime", "direction", "symbol", "ref_price", "qty", "accepted", "reject_code", "reason"})
	tw.Write([]string{"trade_id", "symbol", "direction", "qty", "entry_price", "exit_price", "entry_time", "exit_time", "reason", "realized_pl"})

	sw.Flush()
	if err := sw.Error(); err != nil {
		return nil, err
	}
	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}

	return &CSV{signals: sw, trades: tw, sf: sf, tf: tf}, nil
}

func (j *CSV) RecordSignal(e SignalEvent) error {
	j.signals.Write([]string{
		e.SignalID,
		e.CandleID,
		e.Time.Format(time.RFC3339),
		e.Regime,
		e.Direction,
		e.Symbol,
		f(e.RefPrice),
		strconv.Itoa(e.Qty),
		strconv.FormatBool(e.Accepted),
		e.RejectCode,
		e.Reason,
	})
	j.signals.Flush()
	return j.signals.Error()
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	j.trades.Write([]string{
		t.TradeID,
		t.Symbol,
		t.Direction,
		strconv.Itoa(t.Qty),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.EntryTime.Format(time.RFC3339),
		t.ExitTime.Format(time.RFC3339),
		t.Reason,
		f(t.RealizedPL),
	})
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSV) Close() error {
	j.signals.Flush()
	j.trades.Flush()
	if err := j.sf.Close(); err != nil {
		j.tf.Close()
		return err
	}
	return j.tf.Close()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
