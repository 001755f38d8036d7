package journal

import (
	"time"
)

// DaySummary aggregates one trading day's closed trades.
type DaySummary struct {
	Trades    int
	Wins      int
	Losses    int
	NetPL     float64
	BestTrade float64
	WorstPL   float64
}

// ListTradesClosedBetween returns trades whose exit_time is within
// [start, end), oldest first.
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, symbol, direction, qty, entry_price, exit_price, entry_time, exit_time, reason, realized_pl
		FROM trades
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID, &rec.Symbol, &rec.Direction, &rec.Qty,
			&rec.EntryPrice, &rec.ExitPrice, &rec.EntryTime, &rec.ExitTime,
			&rec.Reason, &rec.RealizedPL,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListSignals returns gate decisions within [start, end), oldest first.
func (j *SQLite) ListSignals(start, end time.Time) ([]SignalEvent, error) {
	rows, err := j.db.Query(`
		SELECT signal_id, candle_id, time, regime, direction, symbol, ref_price, qty, accepted, reject_code, reason
		FROM signals
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SignalEvent
	for rows.Next() {
		var e SignalEvent
		if err := rows.Scan(
			&e.SignalID, &e.CandleID, &e.Time, &e.Regime, &e.Direction,
			&e.Symbol, &e.RefPrice, &e.Qty, &e.Accepted, &e.RejectCode, &e.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Summarize aggregates the trades of the day containing t (UTC).
func (j *SQLite) Summarize(t time.Time) (DaySummary, error) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	trades, err := j.ListTradesClosedBetween(day, day.AddDate(0, 0, 1))
	if err != nil {
		return DaySummary{}, err
	}

	var s DaySummary
	for _, tr := range trades {
		s.Trades++
		s.NetPL += tr.RealizedPL
		if tr.RealizedPL >= 0 {
			s.Wins++
		} else {
			s.Losses++
		}
		if tr.RealizedPL > s.BestTrade {
			s.BestTrade = tr.RealizedPL
		}
		if tr.RealizedPL < s.WorstPL {
			s.WorstPL = tr.RealizedPL
		}
	}
	return s, nil
}
