// Package ledger owns account cash, per-symbol positions and the append-only
// transaction log of the paper-trading simulator.
//
// All cash and position mutations go through Engine.ExecuteTrade, which
// applies the balance check, balance update, position update and transaction
// append as one unit under a per-account lock and a single store
// transaction. Profit is never stored; it is derived on read from average
// cost and the current market price.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide accepts "buy" or "sell" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", fmt.Errorf("%w: unknown side %q", ErrInvalidInput, s)
}

// Account is a user's cash ledger.
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	Cash           decimal.Decimal `json:"cash"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Position is an account's holding in one symbol. AvgCost is only
// meaningful while Quantity > 0.
type Position struct {
	AccountID string          `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	AvgCost   decimal.Decimal `json:"avg_cost"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CostBasis is AvgCost × Quantity.
func (p Position) CostBasis() decimal.Decimal {
	return p.AvgCost.Mul(decimal.NewFromInt(p.Quantity))
}

// Transaction is an immutable record of one executed trade.
type Transaction struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"account_id"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Total      decimal.Decimal `json:"total"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// EquitySnapshot records an account's value at a point in time.
type EquitySnapshot struct {
	AccountID     string          `json:"account_id"`
	Time          time.Time       `json:"time"`
	Cash          decimal.Decimal `json:"cash"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// TradeRequest is a validated-on-entry intent to trade at Price.
type TradeRequest struct {
	AccountID string
	Symbol    string
	Quantity  int64
	Side      Side
	Price     decimal.Decimal
}

// TradeResult is the ledger state after a trade was applied.
type TradeResult struct {
	Cash        decimal.Decimal `json:"cash"`
	Position    Position        `json:"position"`
	Transaction Transaction     `json:"transaction"`
}
