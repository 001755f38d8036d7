package risk

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrStateUnavailable wraps store failures surfaced to callers that need
// to distinguish them from an empty store.
var ErrStateUnavailable = errors.New("risk state unavailable")

const stateSchema = `
CREATE TABLE IF NOT EXISTS risk_state (
	day                TEXT PRIMARY KEY,
	daily_pnl          REAL NOT NULL,
	trade_count        INTEGER NOT NULL,
	consecutive_losses INTEGER NOT NULL,
	winners            INTEGER NOT NULL,
	losers             INTEGER NOT NULL,
	capital_deployed   REAL NOT NULL,
	breaker_tripped    INTEGER NOT NULL,
	kill_switch        INTEGER NOT NULL,
	kill_reason        TEXT NOT NULL,
	close_requested    INTEGER NOT NULL
);
`

// SQLiteStore persists governor state in SQLite, one row per trading
// day. The same database file usually also carries the journal tables.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open risk store: %w", err)
	}
	if _, err := db.Exec(stateSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init risk store schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(day string) (State, bool, error) {
	var st State
	var breaker, kill, closeReq int
	err := s.db.QueryRow(`
		SELECT day, daily_pnl, trade_count, consecutive_losses, winners, losers,
		       capital_deployed, breaker_tripped, kill_switch, kill_reason, close_requested
		FROM risk_state WHERE day = ?`, day).
		Scan(&st.Day, &st.DailyPnL, &st.TradeCount, &st.ConsecutiveLosses,
			&st.Winners, &st.Losers, &st.CapitalDeployed, &breaker, &kill,
			&st.KillReason, &closeReq)
	if err == sql.ErrNoRows {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}
	st.BreakerTripped = breaker != 0
	st.KillSwitch = kill != 0
	st.CloseRequested = closeReq != 0
	return st, true, nil
}

func (s *SQLiteStore) Save(st State) error {
	_, err := s.db.Exec(`
		INSERT INTO risk_state
		(day, daily_pnl, trade_count, consecutive_losses, winners, losers,
		 capital_deployed, breaker_tripped, kill_switch, kill_reason, close_requested)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			daily_pnl = excluded.daily_pnl,
			trade_count = excluded.trade_count,
			consecutive_losses = excluded.consecutive_losses,
			winners = excluded.winners,
			losers = excluded.losers,
			capital_deployed = excluded.capital_deployed,
			breaker_tripped = excluded.breaker_tripped,
			kill_switch = excluded.kill_switch,
			kill_reason = excluded.kill_reason,
			close_requested = excluded.close_requested`,
		st.Day, st.DailyPnL, st.TradeCount, st.ConsecutiveLosses, st.Winners,
		st.Losers, st.CapitalDeployed, b2i(st.BreakerTripped), b2i(st.KillSwitch),
		st.KillReason, b2i(st.CloseRequested))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
