package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

type positionKey struct {
	account string
	symbol  string
}

// MemoryStore is an in-process Store. Update holds the store's write lock
// for the whole callback and applies staged writes only on success.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]Account
	positions    map[positionKey]Position
	transactions map[string][]Transaction // oldest first
	equity       map[string][]EquitySnapshot
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[string]Account),
		positions:    make(map[positionKey]Position),
		transactions: make(map[string][]Transaction),
		equity:       make(map[string][]EquitySnapshot),
	}
}

func (m *MemoryStore) CreateAccount(ctx context.Context, a Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[a.ID]; ok {
		return ErrAccountExists
	}
	for _, other := range m.accounts {
		if strings.EqualFold(other.Name, a.Name) {
			return ErrAccountExists
		}
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *MemoryStore) Account(ctx context.Context, id string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (m *MemoryStore) Accounts(ctx context.Context) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Positions(ctx context.Context, accountID string) ([]Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Position
	for k, p := range m.positions {
		if k.account == accountID && p.Quantity > 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *MemoryStore) Transactions(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return newestFirst(m.transactions[accountID], limit), nil
}

func (m *MemoryStore) RecordEquity(ctx context.Context, s EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[s.AccountID]; !ok {
		return ErrAccountNotFound
	}
	m.equity[s.AccountID] = append(m.equity[s.AccountID], s)
	return nil
}

func (m *MemoryStore) EquityHistory(ctx context.Context, accountID string, limit int) ([]EquitySnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return newestFirst(m.equity[accountID], limit), nil
}

// newestFirst returns up to limit elements of an oldest-first log, reversed.
func newestFirst[T any](log []T, limit int) []T {
	n := len(log)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := len(log) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, log[i])
	}
	return out
}

func (m *MemoryStore) Update(ctx context.Context, accountID string, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := m.begin(accountID)
	if err := fn(tx); err != nil {
		return err
	}
	m.commit(tx)
	return nil
}

func (m *MemoryStore) begin(accountID string) *memTx {
	return &memTx{store: m, accountID: accountID, positions: make(map[string]Position)}
}

// commit applies tx's staged writes. Callers hold m.mu.
func (m *MemoryStore) commit(tx *memTx) {
	if tx.cash != nil {
		a := m.accounts[tx.accountID]
		a.Cash = *tx.cash
		m.accounts[tx.accountID] = a
	}
	for sym, p := range tx.positions {
		m.positions[positionKey{tx.accountID, sym}] = p
	}
	m.transactions[tx.accountID] = append(m.transactions[tx.accountID], tx.appended...)
}

func (m *MemoryStore) Close() error { return nil }

// memTx stages writes until MemoryStore.Update commits them.
type memTx struct {
	store     *MemoryStore
	accountID string

	cash      *decimal.Decimal
	positions map[string]Position
	appended  []Transaction
}

func (t *memTx) Account() (Account, error) {
	a, ok := t.store.accounts[t.accountID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	if t.cash != nil {
		a.Cash = *t.cash
	}
	return a, nil
}

func (t *memTx) Position(symbol string) (Position, error) {
	if p, ok := t.positions[symbol]; ok {
		return p, nil
	}
	if p, ok := t.store.positions[positionKey{t.accountID, symbol}]; ok {
		return p, nil
	}
	return Position{AccountID: t.accountID, Symbol: symbol}, nil
}

func (t *memTx) SetCash(cash decimal.Decimal) error {
	t.cash = &cash
	return nil
}

func (t *memTx) PutPosition(p Position) error {
	t.positions[p.Symbol] = p
	return nil
}

func (t *memTx) AppendTransaction(tr Transaction) error {
	t.appended = append(t.appended, tr)
	return nil
}
