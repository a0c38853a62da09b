package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var hundred = decimal.NewFromInt(100)

// Holding is a position valued at the current market price.
type Holding struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name,omitempty"`
	Quantity      int64           `json:"quantity"`
	AvgCost       decimal.Decimal `json:"avg_cost"`
	Price         decimal.Decimal `json:"price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitPercent decimal.Decimal `json:"profit_percent"`
	DayChange     float64         `json:"day_change"`
	DayChangePct  float64         `json:"day_change_percent"`
}

// Summary is an account's portfolio valued at current prices.
//
// Holdings whose quote could not be fetched are omitted from Holdings and
// from the totals and listed in Unpriced instead.
type Summary struct {
	AccountID          string          `json:"account_id"`
	Name               string          `json:"name"`
	Currency           string          `json:"currency"`
	Cash               decimal.Decimal `json:"cash"`
	Holdings           []Holding       `json:"holdings"`
	Unpriced           []string        `json:"unpriced,omitempty"`
	HoldingsValue      decimal.Decimal `json:"holdings_value"`
	TotalValue         decimal.Decimal `json:"total_value"`
	InitialBalance     decimal.Decimal `json:"initial_balance"`
	TotalProfit        decimal.Decimal `json:"total_profit"`
	TotalProfitPercent decimal.Decimal `json:"total_profit_percent"`
	AsOf               time.Time       `json:"as_of"`
}

// Summary values the account's holdings at fresh market prices.
//
// It takes no lock: the cash and positions are a point-in-time read and the
// prices are fetched afterwards. A symbol whose quote fails after retries is
// logged and skipped; the rest are still aggregated.
func (e *Engine) Summary(ctx context.Context, accountID string) (Summary, error) {
	acct, err := e.Account(ctx, accountID)
	if err != nil {
		return Summary{}, err
	}
	positions, err := e.store.Positions(ctx, accountID)
	if err != nil {
		return Summary{}, storeErr("list positions", err)
	}

	quotes := e.fetchQuotes(ctx, positions)

	s := Summary{
		AccountID:      acct.ID,
		Name:           acct.Name,
		Currency:       acct.Currency,
		Cash:           acct.Cash,
		Holdings:       make([]Holding, 0, len(positions)),
		HoldingsValue:  decimal.Zero,
		InitialBalance: acct.InitialBalance,
		AsOf:           e.opts.Now().UTC(),
	}

	for i, p := range positions {
		q := quotes[i]
		if q == nil {
			s.Unpriced = append(s.Unpriced, p.Symbol)
			continue
		}
		h := valueHolding(p, *q)
		s.HoldingsValue = s.HoldingsValue.Add(h.MarketValue)
		s.Holdings = append(s.Holdings, h)
	}
	sort.Slice(s.Holdings, func(i, j int) bool { return s.Holdings[i].Symbol < s.Holdings[j].Symbol })
	sort.Strings(s.Unpriced)

	s.TotalValue = s.Cash.Add(s.HoldingsValue)
	s.TotalProfit = s.TotalValue.Sub(s.InitialBalance)
	s.TotalProfitPercent = percent(s.TotalProfit, s.InitialBalance)

	return s, nil
}

func valueHolding(p Position, q market.Quote) Holding {
	price := QuotePrice(q)
	qty := decimal.NewFromInt(p.Quantity)
	mv := price.Mul(qty)
	basis := p.CostBasis()
	profit := mv.Sub(basis)

	return Holding{
		Symbol:        p.Symbol,
		Name:          q.Name,
		Quantity:      p.Quantity,
		AvgCost:       p.AvgCost,
		Price:         price,
		MarketValue:   mv,
		CostBasis:     basis,
		Profit:        profit,
		ProfitPercent: percent(profit, basis),
		DayChange:     q.Change,
		DayChangePct:  q.ChangePercent,
	}
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// fetchQuotes prices positions concurrently. The result is aligned with
// positions; nil marks a symbol that could not be priced.
func (e *Engine) fetchQuotes(ctx context.Context, positions []Position) []*market.Quote {
	out := make([]*market.Quote, len(positions))
	if len(positions) == 0 || e.quotes == nil {
		for _, p := range positions {
			e.log.Warn().Str("symbol", p.Symbol).Msg("no quote provider, holding left unpriced")
		}
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.QuoteConcurrency)

	for i, p := range positions {
		i, p := i, p
		g.Go(func() error {
			q, err := e.quoteWithRetry(gctx, p.Symbol)
			if err != nil {
				e.log.Warn().Err(err).Str("symbol", p.Symbol).Msg("skipping holding: quote unavailable")
				return nil
			}
			out[i] = &q
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (e *Engine) quoteWithRetry(ctx context.Context, symbol string) (market.Quote, error) {
	var lastErr error
	for attempt := 0; attempt <= e.opts.QuoteRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return market.Quote{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
		q, err := e.quotes.Quote(ctx, symbol)
		if err == nil {
			return q, nil
		}
		lastErr = err
	}
	return market.Quote{}, fmt.Errorf("after %d attempts: %w", e.opts.QuoteRetries+1, lastErr)
}

// Snapshot values the account and records the result as an equity snapshot.
func (e *Engine) Snapshot(ctx context.Context, accountID string) (EquitySnapshot, error) {
	s, err := e.Summary(ctx, accountID)
	if err != nil {
		return EquitySnapshot{}, err
	}

	snap := EquitySnapshot{
		AccountID:     s.AccountID,
		Time:          s.AsOf,
		Cash:          s.Cash,
		HoldingsValue: s.HoldingsValue,
		TotalValue:    s.TotalValue,
	}
	if err := e.store.RecordEquity(ctx, snap); err != nil {
		return EquitySnapshot{}, storeErr("record equity", err)
	}
	return snap, nil
}

// SnapshotAll snapshots every account, continuing past individual failures.
// It returns the number of snapshots recorded.
func (e *Engine) SnapshotAll(ctx context.Context) (int, error) {
	accounts, err := e.Accounts(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, a := range accounts {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := e.Snapshot(ctx, a.ID); err != nil {
			e.log.Error().Err(err).Str("account", a.ID).Msg("equity snapshot failed")
			continue
		}
		n++
	}
	e.log.Debug().Int("accounts", len(accounts)).Int("recorded", n).Msg("equity snapshots recorded")
	return n, nil
}
