package journal

// Decimal amounts are stored as TEXT to keep them exact.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE COLLATE NOCASE,
	currency TEXT NOT NULL,
	cash TEXT NOT NULL,
	initial_balance TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	account_id TEXT NOT NULL REFERENCES accounts(id),
	symbol TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity >= 0),
	avg_cost TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (account_id, symbol)
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(id),
	symbol TEXT NOT NULL,
	side TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	price TEXT NOT NULL,
	total TEXT NOT NULL,
	executed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_account_time
	ON transactions(account_id, executed_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS equity (
	account_id TEXT NOT NULL REFERENCES accounts(id),
	time TEXT NOT NULL,
	cash TEXT NOT NULL,
	holdings_value TEXT NOT NULL,
	total_value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_account_time ON equity(account_id, time);
`
