package journal

const Schema = `
CREATE TABLE IF NOT EXISTS signals (
	signal_id TEXT PRIMARY KEY,
	candle_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	regime TEXT NOT NULL,
	direction TEXT NOT NULL,
	symbol TEXT NOT NULL,
	ref_price REAL NOT NULL,
	qty INTEGER NOT NULL,
	accepted INTEGER NOT NULL,
	reject_code TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	qty INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME NOT NULL,
	reason TEXT NOT NULL,
	realized_pl REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_time ON signals(time);
CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
`
