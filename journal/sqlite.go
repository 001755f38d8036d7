package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordSignal(e SignalEvent) error {
	_, err := j.db.Exec(`
		INSERT INTO signals
		(signal_id, candle_id, time, regime, direction, symbol, ref_price, qty, accepted, reject_code, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SignalID, e.CandleID, e.Time, e.Regime, e.Direction,
		e.Symbol, e.RefPrice, e.Qty, e.Accepted, e.RejectCode, e.Reason,
	)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, direction, qty, entry_price, exit_price, entry_time, exit_time, reason, realized_pl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, t.Direction, t.Qty, t.EntryPrice,
		t.ExitPrice, t.EntryTime, t.ExitTime, t.Reason, t.RealizedPL,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`
		SELECT trade_id, symbol, direction, qty, entry_price, exit_price, entry_time, exit_time, reason, realized_pl
		FROM trades
		WHERE trade_id = ?`, tradeID)

	var rec TradeRecord
	err := row.Scan(
		&rec.TradeID, &rec.Symbol, &rec.Direction, &rec.Qty,
		&rec.EntryPrice, &rec.ExitPrice, &rec.EntryTime, &rec.ExitTime,
		&rec.Reason, &rec.RealizedPL,
	)
	if err == sql.ErrNoRows {
		return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
	}
	return rec, err
}
