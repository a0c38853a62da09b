package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/papertrader/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeQuoter serves fixed prices and can be told to fail some symbols a
// number of times before succeeding.
type fakeQuoter struct {
	mu     sync.Mutex
	prices map[string]float64
	fail   map[string]int // remaining failures; -1 fails forever
	calls  map[string]int
}

func newFakeQuoter(prices map[string]float64) *fakeQuoter {
	return &fakeQuoter{prices: prices, fail: map[string]int{}, calls: map[string]int{}}
}

func (f *fakeQuoter) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[symbol]++
	if n := f.fail[symbol]; n != 0 {
		if n > 0 {
			f.fail[symbol] = n - 1
		}
		return market.Quote{}, fmt.Errorf("%w: %s: upstream down", market.ErrQuoteUnavailable, symbol)
	}
	p, ok := f.prices[symbol]
	if !ok {
		return market.Quote{}, fmt.Errorf("%w: %s: unknown symbol", market.ErrQuoteUnavailable, symbol)
	}
	return market.Quote{Symbol: symbol, Name: symbol + " Inc.", Price: p, Change: 1, ChangePercent: 0.5}, nil
}

func (f *fakeQuoter) set(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances one second per call so transactions get distinct times.
func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestEngine(t *testing.T, store Store, q market.Quoter) *Engine {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)}
	return NewEngine(store, q, Options{
		InitialBalance: d("10000.00"),
		QuoteRetries:   1,
		Now:            clock.Now,
	}, zerolog.Nop())
}

func openAccount(t *testing.T, e *Engine, name string) Account {
	t.Helper()
	a, err := e.OpenAccount(context.Background(), name)
	require.NoError(t, err)
	return a
}

func trade(t *testing.T, e *Engine, acct string, side Side, symbol string, qty int64, price string) TradeResult {
	t.Helper()
	res, err := e.ExecuteTrade(context.Background(), TradeRequest{
		AccountID: acct,
		Symbol:    symbol,
		Quantity:  qty,
		Side:      side,
		Price:     d(price),
	})
	require.NoError(t, err)
	return res
}

// state returns the account's cash and position in symbol.
func state(t *testing.T, s Store, acct, symbol string) (decimal.Decimal, Position) {
	t.Helper()
	ctx := context.Background()
	a, err := s.Account(ctx, acct)
	require.NoError(t, err)

	var pos Position
	err = s.Update(ctx, acct, func(tx Tx) error {
		pos, err = tx.Position(symbol)
		return err
	})
	require.NoError(t, err)
	return a.Cash, pos
}
