package ledger

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/pkg/id"
	"github.com/shopspring/decimal"
)

// normalize validates r and returns it with the symbol normalized.
// It never touches state.
func (r TradeRequest) normalize() (TradeRequest, error) {
	if err := validAccountID(r.AccountID); err != nil {
		return r, err
	}
	r.Symbol = market.NormalizeSymbol(r.Symbol)
	if r.Symbol == "" {
		return r, fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if strings.ContainsAny(r.Symbol, " \t/") {
		return r, fmt.Errorf("%w: malformed symbol %q", ErrInvalidInput, r.Symbol)
	}
	if r.Quantity <= 0 {
		return r, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidInput, r.Quantity)
	}
	if r.Side != Buy && r.Side != Sell {
		return r, fmt.Errorf("%w: unknown side %q", ErrInvalidInput, r.Side)
	}
	if !r.Price.IsPositive() {
		return r, fmt.Errorf("%w: price must be positive, got %s", ErrInvalidInput, r.Price)
	}
	return r, nil
}

func validAccountID(s string) error {
	if _, err := id.Parse(id.Account, s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// applyBuy returns the cash and position after buying qty at price.
// The new average cost is the quantity-weighted mean of the old holding and
// the fill; a first buy sets it to price.
func applyBuy(cash decimal.Decimal, pos Position, qty int64, price decimal.Decimal) (decimal.Decimal, Position, error) {
	cost := price.Mul(decimal.NewFromInt(qty))
	if cash.LessThan(cost) {
		return cash, pos, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost.StringFixed(2), cash.StringFixed(2))
	}

	newQty := pos.Quantity + qty
	if pos.Quantity == 0 {
		pos.AvgCost = price
	} else {
		pos.AvgCost = pos.CostBasis().Add(cost).Div(decimal.NewFromInt(newQty))
	}
	pos.Quantity = newQty

	return cash.Sub(cost), pos, nil
}

// applySell returns the cash and position after selling qty at price.
// Average cost is left unchanged.
func applySell(cash decimal.Decimal, pos Position, qty int64, price decimal.Decimal) (decimal.Decimal, Position, error) {
	if pos.Quantity < qty {
		return cash, pos, fmt.Errorf("%w: %s holds %d, requested %d", ErrInsufficientShares, pos.Symbol, pos.Quantity, qty)
	}

	proceeds := price.Mul(decimal.NewFromInt(qty))
	pos.Quantity -= qty

	return cash.Add(proceeds), pos, nil
}
