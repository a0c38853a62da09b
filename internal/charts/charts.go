// Package charts assembles price history and indicator overlays for a symbol.
package charts

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/papertrader/indicators"
	"github.com/rustyeddy/papertrader/market"
	"golang.org/x/sync/errgroup"
)

const (
	ShortPeriod     = 20
	LongPeriod      = 50
	BollingerPeriod = 20
	BollingerWidth  = 2.0
)

// Overlays are indicator series aligned with Chart.Candles.
type Overlays struct {
	SMA20     indicators.Series `json:"sma20"`
	SMA50     indicators.Series `json:"sma50"`
	EMA20     indicators.Series `json:"ema20"`
	RSI14     indicators.Series `json:"rsi14"`
	Bollinger indicators.Bands  `json:"bollinger"`
}

// Chart is everything a client needs to draw one symbol.
type Chart struct {
	Symbol   string          `json:"symbol"`
	Range    market.Range    `json:"range"`
	Interval market.Interval `json:"interval"`
	Quote    market.Quote    `json:"quote"`
	Candles  []market.Candle `json:"candles"`
	Overlays Overlays        `json:"overlays"`
}

// Service builds charts from a market data provider.
type Service struct {
	provider market.Provider
	now      func() time.Time
	log      zerolog.Logger
}

func NewService(p market.Provider, log zerolog.Logger) *Service {
	return &Service{
		provider: p,
		now:      time.Now,
		log:      log.With().Str("component", "charts").Logger(),
	}
}

// Chart fetches the quote and the candles for r concurrently and computes
// the overlays over the closes. Either fetch failing fails the chart.
func (s *Service) Chart(ctx context.Context, symbol string, r market.Range) (Chart, error) {
	symbol = market.NormalizeSymbol(symbol)
	start, interval := r.Window(s.now())

	var (
		quote   market.Quote
		candles []market.Candle
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quote, err = s.provider.Quote(gctx, symbol)
		return err
	})
	g.Go(func() error {
		var err error
		candles, err = s.provider.History(gctx, symbol, start, interval)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Str("range", string(r)).Msg("chart fetch failed")
		return Chart{}, err
	}
	if candles == nil {
		candles = []market.Candle{}
	}

	closes := market.Closes(candles)
	c := Chart{
		Symbol:   symbol,
		Range:    r,
		Interval: interval,
		Quote:    quote,
		Candles:  candles,
		Overlays: Overlays{
			SMA20:     indicators.SMA(closes, ShortPeriod),
			SMA50:     indicators.SMA(closes, LongPeriod),
			EMA20:     indicators.EMA(closes, ShortPeriod),
			RSI14:     indicators.RSI(closes, indicators.DefaultRSIPeriod),
			Bollinger: indicators.Bollinger(closes, BollingerPeriod, BollingerWidth),
		},
	}

	s.log.Debug().Str("symbol", symbol).Str("range", string(r)).Int("candles", len(candles)).Msg("chart built")
	return c, nil
}
