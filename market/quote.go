package market

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrQuoteUnavailable is returned (wrapped) by providers for any failure to
// produce market data: transport errors, timeouts, unknown symbols.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// Quote is a point-in-time snapshot of a symbol's trading day.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previous_close"`
	DayHigh       float64   `json:"day_high"`
	DayLow        float64   `json:"day_low"`
	Volume        int64     `json:"volume"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Time          time.Time `json:"time"`
}

// SearchResult is one match returned by a symbol search.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Quoter returns the current quote for a symbol.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// Provider is the market-data collaborator consumed by the ledger and the
// chart service. Implementations may fail or time out per call.
type Provider interface {
	Quoter
	History(ctx context.Context, symbol string, start time.Time, interval Interval) ([]Candle, error)
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
