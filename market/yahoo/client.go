// Package yahoo implements market.Provider against the Yahoo Finance chart
// and search endpoints.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rustyeddy/papertrader/market"
)

const (
	// ChartURL serves quotes and price history.
	ChartURL = "https://query1.finance.yahoo.com"
	// SearchURL serves symbol lookups.
	SearchURL = "https://query2.finance.yahoo.com"

	DefaultTimeout = 10 * time.Second

	userAgent = "Mozilla/5.0 (compatible; papertrader/1.0)"
)

// Client is a Yahoo Finance API client.
type Client struct {
	chartURL   string
	searchURL  string
	httpClient *http.Client
}

// NewClient creates a client. Empty URLs select the public endpoints and a
// non-positive timeout selects DefaultTimeout.
func NewClient(chartURL, searchURL string, timeout time.Duration) *Client {
	if chartURL == "" {
		chartURL = ChartURL
	}
	if searchURL == "" {
		searchURL = SearchURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		chartURL:  chartURL,
		searchURL: searchURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// chartMeta is the per-symbol metadata block of a chart response.
type chartMeta struct {
	Symbol               string  `json:"symbol"`
	Currency             string  `json:"currency"`
	LongName             string  `json:"longName"`
	ShortName            string  `json:"shortName"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
	RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
	RegularMarketVolume  int64   `json:"regularMarketVolume"`
	RegularMarketTime    int64   `json:"regularMarketTime"`
	ChartPreviousClose   float64 `json:"chartPreviousClose"`
	PreviousClose        float64 `json:"previousClose"`
}

// quoteColumns holds OHLCV arrays; Yahoo uses null for missing intervals.
type quoteColumns struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []quoteColumns `json:"quote"`
	} `json:"indicators"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type searchQuote struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortname"`
	LongName  string `json:"longname"`
	Exchange  string `json:"exchDisp"`
	QuoteType string `json:"quoteType"`
}

type searchResponse struct {
	Quotes []searchQuote `json:"quotes"`
}

// Quote fetches the current quote for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	symbol = market.NormalizeSymbol(symbol)
	if symbol == "" {
		return market.Quote{}, fmt.Errorf("%w: symbol is required", market.ErrQuoteUnavailable)
	}

	params := url.Values{}
	params.Set("interval", string(market.Day1))
	params.Set("range", "1d")

	res, err := c.chart(ctx, symbol, params)
	if err != nil {
		return market.Quote{}, err
	}

	m := res.Meta
	prev := m.ChartPreviousClose
	if prev == 0 {
		prev = m.PreviousClose
	}
	name := m.LongName
	if name == "" {
		name = m.ShortName
	}

	q := market.Quote{
		Symbol:        symbol,
		Name:          name,
		Currency:      m.Currency,
		Price:         m.RegularMarketPrice,
		PreviousClose: prev,
		DayHigh:       m.RegularMarketDayHigh,
		DayLow:        m.RegularMarketDayLow,
		Volume:        m.RegularMarketVolume,
		Time:          time.Unix(m.RegularMarketTime, 0).UTC(),
	}
	if prev != 0 {
		q.Change = q.Price - prev
		q.ChangePercent = q.Change / prev * 100
	}
	if q.Price <= 0 {
		return market.Quote{}, fmt.Errorf("%w: %s: no market price", market.ErrQuoteUnavailable, symbol)
	}
	return q, nil
}

// History fetches candles for symbol from start until now.
func (c *Client) History(ctx context.Context, symbol string, start time.Time, interval market.Interval) ([]market.Candle, error) {
	symbol = market.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", market.ErrQuoteUnavailable)
	}
	if interval == "" {
		interval = market.Day1
	}

	params := url.Values{}
	params.Set("interval", string(interval))
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(time.Now().Unix(), 10))

	res, err := c.chart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	if len(res.Indicators.Quote) == 0 {
		return []market.Candle{}, nil
	}
	cols := res.Indicators.Quote[0]

	candles := make([]market.Candle, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		cl := at(cols.Close, i)
		// Skip intervals with no trades.
		if cl == nil {
			continue
		}
		bar := market.Candle{
			Time:  time.Unix(ts, 0).UTC(),
			Close: *cl,
			Open:  orDefault(at(cols.Open, i), *cl),
			High:  orDefault(at(cols.High, i), *cl),
			Low:   orDefault(at(cols.Low, i), *cl),
		}
		if i < len(cols.Volume) && cols.Volume[i] != nil {
			bar.Volume = *cols.Volume[i]
		}
		candles = append(candles, bar)
	}

	return candles, nil
}

// Search looks up symbols matching query.
func (c *Client) Search(ctx context.Context, query string) ([]market.SearchResult, error) {
	if query == "" {
		return []market.SearchResult{}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("quotesCount", "10")
	params.Set("newsCount", "0")

	apiURL := fmt.Sprintf("%s/v1/finance/search?%s", c.searchURL, params.Encode())

	var resp searchResponse
	if err := c.getJSON(ctx, apiURL, &resp); err != nil {
		return nil, fmt.Errorf("%w: search %q: %w", market.ErrQuoteUnavailable, query, err)
	}

	out := make([]market.SearchResult, 0, len(resp.Quotes))
	for _, sq := range resp.Quotes {
		if sq.Symbol == "" {
			continue
		}
		name := sq.LongName
		if name == "" {
			name = sq.ShortName
		}
		out = append(out, market.SearchResult{
			Symbol:   sq.Symbol,
			Name:     name,
			Exchange: sq.Exchange,
			Type:     sq.QuoteType,
		})
	}
	return out, nil
}

func (c *Client) chart(ctx context.Context, symbol string, params url.Values) (chartResult, error) {
	apiURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.chartURL, url.PathEscape(symbol), params.Encode())

	var resp chartResponse
	if err := c.getJSON(ctx, apiURL, &resp); err != nil {
		return chartResult{}, fmt.Errorf("%w: %s: %w", market.ErrQuoteUnavailable, symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		return chartResult{}, fmt.Errorf("%w: %s: %s: %s", market.ErrQuoteUnavailable, symbol, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return chartResult{}, fmt.Errorf("%w: %s: empty result", market.ErrQuoteUnavailable, symbol)
	}
	return resp.Chart.Result[0], nil
}

func (c *Client) getJSON(ctx context.Context, apiURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Client.Timeout errors report Timeout() but may not match the context sentinel.
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("execute request: %w: %w", context.DeadlineExceeded, err)
		}
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func at(col []*float64, i int) *float64 {
	if i >= len(col) {
		return nil
	}
	return col[i]
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
