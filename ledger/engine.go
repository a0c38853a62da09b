package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/pkg/id"
	"github.com/shopspring/decimal"
)

const (
	DefaultHistoryLimit     = 50
	DefaultQuoteRetries     = 1
	DefaultQuoteConcurrency = 4
	DefaultCurrency         = "USD"
)

// DefaultInitialBalance is the virtual cash a new account receives.
var DefaultInitialBalance = decimal.NewFromInt(10000)

// Options tunes an Engine. Zero values select the defaults above.
type Options struct {
	InitialBalance   decimal.Decimal
	Currency         string
	HistoryLimit     int
	QuoteRetries     int
	QuoteConcurrency int
	Now              func() time.Time
}

func (o Options) withDefaults() Options {
	if !o.InitialBalance.IsPositive() {
		o.InitialBalance = DefaultInitialBalance
	}
	if o.Currency == "" {
		o.Currency = DefaultCurrency
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if o.QuoteRetries < 0 {
		o.QuoteRetries = 0
	}
	if o.QuoteConcurrency <= 0 {
		o.QuoteConcurrency = DefaultQuoteConcurrency
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Engine applies trades to accounts and reports on them.
type Engine struct {
	store  Store
	quotes market.Quoter
	locks  *accountLocks
	opts   Options
	log    zerolog.Logger
}

// NewEngine creates an engine over store. quotes prices market orders and
// summaries; it may be nil if only ExecuteTrade with explicit prices is used.
func NewEngine(store Store, quotes market.Quoter, opts Options, log zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		quotes: quotes,
		locks:  newAccountLocks(),
		opts:   opts.withDefaults(),
		log:    log.With().Str("component", "ledger").Logger(),
	}
}

// OpenAccount registers a new account funded with the initial balance.
func (e *Engine) OpenAccount(ctx context.Context, name string) (Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Account{}, fmt.Errorf("%w: account name is required", ErrInvalidInput)
	}

	now := e.opts.Now().UTC()
	a := Account{
		ID:             id.NewAt(id.Account, now),
		Name:           name,
		Currency:       e.opts.Currency,
		Cash:           e.opts.InitialBalance,
		InitialBalance: e.opts.InitialBalance,
		CreatedAt:      now,
	}
	if err := e.store.CreateAccount(ctx, a); err != nil {
		return Account{}, storeErr("create account", err)
	}

	e.log.Info().Str("account", a.ID).Str("name", a.Name).Str("cash", a.Cash.StringFixed(2)).Msg("account opened")
	return a, nil
}

// Account returns one account.
func (e *Engine) Account(ctx context.Context, accountID string) (Account, error) {
	if err := validAccountID(accountID); err != nil {
		return Account{}, err
	}
	a, err := e.store.Account(ctx, accountID)
	return a, storeErr("get account", err)
}

// Accounts returns every account.
func (e *Engine) Accounts(ctx context.Context) ([]Account, error) {
	as, err := e.store.Accounts(ctx)
	return as, storeErr("list accounts", err)
}

// Positions returns the account's non-zero holdings.
func (e *Engine) Positions(ctx context.Context, accountID string) ([]Position, error) {
	if _, err := e.Account(ctx, accountID); err != nil {
		return nil, err
	}
	ps, err := e.store.Positions(ctx, accountID)
	return ps, storeErr("list positions", err)
}

// Transactions returns the account's most recent transactions, newest first.
// A limit outside (0, HistoryLimit] is clamped to HistoryLimit.
func (e *Engine) Transactions(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	if _, err := e.Account(ctx, accountID); err != nil {
		return nil, err
	}
	ts, err := e.store.Transactions(ctx, accountID, e.clampLimit(limit))
	return ts, storeErr("list transactions", err)
}

// EquityHistory returns recorded equity snapshots, newest first.
func (e *Engine) EquityHistory(ctx context.Context, accountID string, limit int) ([]EquitySnapshot, error) {
	if _, err := e.Account(ctx, accountID); err != nil {
		return nil, err
	}
	ss, err := e.store.EquityHistory(ctx, accountID, e.clampLimit(limit))
	return ss, storeErr("list equity", err)
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 || limit > e.opts.HistoryLimit {
		return e.opts.HistoryLimit
	}
	return limit
}

// ExecuteTrade applies req at req.Price.
//
// The funds or shares check, the cash update, the position update and the
// transaction append happen under the account's lock inside one store
// transaction: either all of them persist or none do. Trades on different
// accounts proceed in parallel.
func (e *Engine) ExecuteTrade(ctx context.Context, req TradeRequest) (TradeResult, error) {
	req, err := req.normalize()
	if err != nil {
		return TradeResult{}, err
	}

	unlock := e.locks.Lock(req.AccountID)
	defer unlock()

	now := e.opts.Now().UTC()
	var res TradeResult

	err = e.store.Update(ctx, req.AccountID, func(tx Tx) error {
		acct, err := tx.Account()
		if err != nil {
			return err
		}
		pos, err := tx.Position(req.Symbol)
		if err != nil {
			return err
		}
		pos.AccountID = req.AccountID
		pos.Symbol = req.Symbol

		var cash decimal.Decimal
		switch req.Side {
		case Buy:
			cash, pos, err = applyBuy(acct.Cash, pos, req.Quantity, req.Price)
		case Sell:
			cash, pos, err = applySell(acct.Cash, pos, req.Quantity, req.Price)
		}
		if err != nil {
			return err
		}
		pos.UpdatedAt = now

		t := Transaction{
			ID:         id.NewAt(id.Transaction, now),
			AccountID:  req.AccountID,
			Symbol:     req.Symbol,
			Side:       req.Side,
			Quantity:   req.Quantity,
			Price:      req.Price,
			Total:      req.Price.Mul(decimal.NewFromInt(req.Quantity)),
			ExecutedAt: now,
		}

		if err := tx.SetCash(cash); err != nil {
			return err
		}
		if err := tx.PutPosition(pos); err != nil {
			return err
		}
		if err := tx.AppendTransaction(t); err != nil {
			return err
		}

		res = TradeResult{Cash: cash, Position: pos, Transaction: t}
		return nil
	})
	if err != nil {
		err = storeErr("execute trade", err)
		e.log.Debug().Err(err).
			Str("account", req.AccountID).
			Str("symbol", req.Symbol).
			Str("side", string(req.Side)).
			Int64("quantity", req.Quantity).
			Msg("trade rejected")
		return TradeResult{}, err
	}

	e.log.Info().
		Str("account", req.AccountID).
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Int64("quantity", req.Quantity).
		Str("price", req.Price.String()).
		Str("cash", res.Cash.StringFixed(2)).
		Msg("trade executed")

	return res, nil
}

// PlaceMarketOrder prices an order from a fresh quote and executes it.
// No retry is attempted: a failed quote fails the order.
func (e *Engine) PlaceMarketOrder(ctx context.Context, accountID, symbol string, quantity int64, side Side) (TradeResult, error) {
	req := TradeRequest{
		AccountID: accountID,
		Symbol:    symbol,
		Quantity:  quantity,
		Side:      side,
		// placeholder so validation runs before the quote is fetched
		Price: decimal.NewFromInt(1),
	}
	req, err := req.normalize()
	if err != nil {
		return TradeResult{}, err
	}
	if e.quotes == nil {
		return TradeResult{}, fmt.Errorf("%w: no quote provider configured", market.ErrQuoteUnavailable)
	}

	q, err := e.quotes.Quote(ctx, req.Symbol)
	if err != nil {
		if !errors.Is(err, market.ErrQuoteUnavailable) {
			err = fmt.Errorf("%w: %w", market.ErrQuoteUnavailable, err)
		}
		return TradeResult{}, err
	}
	req.Price = QuotePrice(q)
	if !req.Price.IsPositive() {
		return TradeResult{}, fmt.Errorf("%w: %s: non-positive price %v", market.ErrQuoteUnavailable, req.Symbol, q.Price)
	}

	return e.ExecuteTrade(ctx, req)
}

// QuotePrice converts a quote's float price to a decimal at 4 places.
func QuotePrice(q market.Quote) decimal.Decimal {
	return decimal.NewFromFloat(q.Price).Round(4)
}
