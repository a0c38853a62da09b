package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/shopspring/decimal"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLite is a ledger.Store backed by a SQLite database file.
//
// Update runs inside BEGIN IMMEDIATE, which takes the database write lock
// up front. Separate processes sharing one file are therefore serialized as
// well as goroutines in this one.
type SQLite struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the database at path and applies the
// schema.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("journal: sqlite path is required")
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, err
	}
	if path == MemoryPath {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func dsn(path string) string {
	params := []string{"_txlock=immediate", "_busy_timeout=5000", "_foreign_keys=on"}
	if path != MemoryPath {
		params = append(params, "_journal_mode=WAL")
	}
	return path + "?" + strings.Join(params, "&")
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func (j *SQLite) CreateAccount(ctx context.Context, a ledger.Account) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, currency, cash, initial_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Currency, a.Cash, a.InitialBalance, formatTime(a.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %q", ledger.ErrAccountExists, a.Name)
	}
	return err
}

const accountColumns = `id, name, currency, cash, initial_balance, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (ledger.Account, error) {
	var (
		a       ledger.Account
		created string
	)
	if err := r.Scan(&a.ID, &a.Name, &a.Currency, &a.Cash, &a.InitialBalance, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, ledger.ErrAccountNotFound
		}
		return a, err
	}
	t, err := parseTime(created)
	if err != nil {
		return a, fmt.Errorf("account %s: created_at: %w", a.ID, err)
	}
	a.CreatedAt = t
	return a, nil
}

func (j *SQLite) Account(ctx context.Context, id string) (ledger.Account, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (j *SQLite) Accounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanPosition(r rowScanner) (ledger.Position, error) {
	var (
		p       ledger.Position
		updated string
	)
	if err := r.Scan(&p.AccountID, &p.Symbol, &p.Quantity, &p.AvgCost, &updated); err != nil {
		return p, err
	}
	t, err := parseTime(updated)
	if err != nil {
		return p, fmt.Errorf("position %s/%s: updated_at: %w", p.AccountID, p.Symbol, err)
	}
	p.UpdatedAt = t
	return p, nil
}

func (j *SQLite) Positions(ctx context.Context, accountID string) ([]ledger.Position, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT account_id, symbol, quantity, avg_cost, updated_at
		FROM positions
		WHERE account_id = ? AND quantity > 0
		ORDER BY symbol`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (j *SQLite) Transactions(ctx context.Context, accountID string, limit int) ([]ledger.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, account_id, symbol, side, quantity, price, total, executed_at
		FROM transactions
		WHERE account_id = ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var (
			t        ledger.Transaction
			side     string
			executed string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Symbol, &side, &t.Quantity, &t.Price, &t.Total, &executed); err != nil {
			return nil, err
		}
		t.Side = ledger.Side(side)
		if t.ExecutedAt, err = parseTime(executed); err != nil {
			return nil, fmt.Errorf("transaction %s: executed_at: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLite) RecordEquity(ctx context.Context, s ledger.EquitySnapshot) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO equity (account_id, time, cash, holdings_value, total_value)
		VALUES (?, ?, ?, ?, ?)`,
		s.AccountID, formatTime(s.Time), s.Cash, s.HoldingsValue, s.TotalValue,
	)
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey {
		return ledger.ErrAccountNotFound
	}
	return err
}

func (j *SQLite) EquityHistory(ctx context.Context, accountID string, limit int) ([]ledger.EquitySnapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT account_id, time, cash, holdings_value, total_value
		FROM equity
		WHERE account_id = ?
		ORDER BY time DESC, rowid DESC
		LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.EquitySnapshot
	for rows.Next() {
		var (
			s  ledger.EquitySnapshot
			ts string
		)
		if err := rows.Scan(&s.AccountID, &ts, &s.Cash, &s.HoldingsValue, &s.TotalValue); err != nil {
			return nil, err
		}
		if s.Time, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("equity %s: time: %w", s.AccountID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update runs fn in one immediate transaction and commits if fn returns nil.
func (j *SQLite) Update(ctx context.Context, accountID string, fn func(ledger.Tx) error) (err error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&sqliteTx{ctx: ctx, tx: tx, accountID: accountID}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

type sqliteTx struct {
	ctx       context.Context
	tx        *sql.Tx
	accountID string
}

func (t *sqliteTx) Account() (ledger.Account, error) {
	row := t.tx.QueryRowContext(t.ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, t.accountID)
	return scanAccount(row)
}

func (t *sqliteTx) Position(symbol string) (ledger.Position, error) {
	row := t.tx.QueryRowContext(t.ctx, `
		SELECT account_id, symbol, quantity, avg_cost, updated_at
		FROM positions
		WHERE account_id = ? AND symbol = ?`, t.accountID, symbol)
	p, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Position{AccountID: t.accountID, Symbol: symbol, AvgCost: decimal.Zero}, nil
	}
	return p, err
}

func (t *sqliteTx) SetCash(cash decimal.Decimal) error {
	res, err := t.tx.ExecContext(t.ctx, `UPDATE accounts SET cash = ? WHERE id = ?`, cash, t.accountID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

func (t *sqliteTx) PutPosition(p ledger.Position) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO positions (account_id, symbol, quantity, avg_cost, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (account_id, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			avg_cost = excluded.avg_cost,
			updated_at = excluded.updated_at`,
		t.accountID, p.Symbol, p.Quantity, p.AvgCost, formatTime(p.UpdatedAt),
	)
	return err
}

func (t *sqliteTx) AppendTransaction(tr ledger.Transaction) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO transactions (id, account_id, symbol, side, quantity, price, total, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, t.accountID, tr.Symbol, string(tr.Side), tr.Quantity, tr.Price, tr.Total, formatTime(tr.ExecutedAt),
	)
	return err
}
