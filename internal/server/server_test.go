package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrader/internal/charts"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
)

type fakeProvider struct {
	mu     sync.Mutex
	prices map[string]float64
}

func (f *fakeProvider) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if symbol == "SLOW" {
		return market.Quote{}, fmt.Errorf("%w: %s: %w", market.ErrQuoteUnavailable, symbol, context.DeadlineExceeded)
	}
	p, ok := f.prices[symbol]
	if !ok {
		return market.Quote{}, fmt.Errorf("%w: %s: no data", market.ErrQuoteUnavailable, symbol)
	}
	return market.Quote{Symbol: symbol, Name: symbol + " Corp", Price: p}, nil
}

func (f *fakeProvider) History(ctx context.Context, symbol string, start time.Time, interval market.Interval) ([]market.Candle, error) {
	if _, err := f.Quote(ctx, symbol); err != nil {
		return nil, err
	}
	out := make([]market.Candle, 30)
	for i := range out {
		c := float64(10 + i)
		out[i] = market.Candle{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out, nil
}

func (f *fakeProvider) Search(ctx context.Context, query string) ([]market.SearchResult, error) {
	if query == "none" {
		return nil, nil
	}
	return []market.SearchResult{{Symbol: strings.ToUpper(query), Name: "Match"}}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeProvider) {
	t.Helper()
	p := &fakeProvider{prices: map[string]float64{"AAPL": 100, "MSFT": 50}}
	engine := ledger.NewEngine(ledger.NewMemoryStore(), p, ledger.Options{}, zerolog.Nop())
	s := New(Config{
		Addr:    "127.0.0.1:0",
		DevMode: true,
		Version: "test",
		Log:     zerolog.Nop(),
		Engine:  engine,
		Market:  p,
		Charts:  charts.NewService(p, zerolog.Nop()),
	})
	return s, p
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func openAccount(t *testing.T, s *Server, name string) ledger.Account {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/accounts", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[ledger.Account](t, rec)
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, rec)["error"]
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestAccounts(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/accounts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	a := openAccount(t, s, "alice")
	assert.Equal(t, "10000", a.Cash.String())

	rec = do(t, s, http.MethodPost, "/api/accounts", map[string]string{"name": "ALICE"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/accounts", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/accounts", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/accounts/"+a.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, a.ID, decodeBody[ledger.Account](t, rec).ID)

	rec = do(t, s, http.MethodGet, "/api/accounts", nil)
	assert.Len(t, decodeBody[[]ledger.Account](t, rec), 1)

	rec = do(t, s, http.MethodGet, "/api/accounts/acct_01HZZZZZZZZZZZZZZZZZZZZZZZ", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/accounts/garbage", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTradeFlow(t *testing.T) {
	s, _ := newTestServer(t)
	a := openAccount(t, s, "bob")
	base := "/api/accounts/" + a.ID

	rec := do(t, s, http.MethodPost, base+"/trades", map[string]any{"symbol": "aapl", "quantity": 10, "side": "buy"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decodeBody[ledger.TradeResult](t, rec)
	assert.Equal(t, "9000", res.Cash.String())
	assert.Equal(t, "AAPL", res.Position.Symbol)

	rec = do(t, s, http.MethodPost, base+"/trades", map[string]any{"symbol": "AAPL", "quantity": 11, "side": "sell"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "insufficient shares")

	rec = do(t, s, http.MethodPost, base+"/trades", map[string]any{"symbol": "MSFT", "quantity": 1000, "side": "buy"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "insufficient funds")

	rec = do(t, s, http.MethodPost, base+"/trades", map[string]any{"symbol": "AAPL", "quantity": 0, "side": "buy"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, base+"/trades", map[string]any{"symbol": "AAPL", "quantity": 1, "side": "hold"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, base+"/trades", map[string]any{"symbol": "AAPL", "quantity": 1, "side": "buy", "price": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, base+"/trades", map[string]any{"symbol": "NOPE", "quantity": 1, "side": "buy"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(t, s, http.MethodGet, base+"/positions", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	ps := decodeBody[[]ledger.Position](t, rec)
	require.Len(t, ps, 1)
	assert.Equal(t, int64(10), ps[0].Quantity)

	rec = do(t, s, http.MethodGet, base+"/summary", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	sum := decodeBody[ledger.Summary](t, rec)
	assert.Equal(t, "10000.00", sum.TotalValue.StringFixed(2))
	require.Len(t, sum.Holdings, 1)
	assert.Equal(t, "AAPL Corp", sum.Holdings[0].Name)
}

func TestTransactions(t *testing.T) {
	s, _ := newTestServer(t)
	a := openAccount(t, s, "carol")
	base := "/api/accounts/" + a.ID

	for i := 0; i < 3; i++ {
		rec := do(t, s, http.MethodPost, base+"/trades", map[string]any{"symbol": "MSFT", "quantity": i + 1, "side": "buy"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, s, http.MethodGet, base+"/transactions", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ledger.Transaction](t, rec), 3)

	rec = do(t, s, http.MethodGet, base+"/transactions?limit=2", nil)
	txs := decodeBody[[]ledger.Transaction](t, rec)
	require.Len(t, txs, 2)

	rec = do(t, s, http.MethodGet, base+"/transactions?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, base+"/transactions?format=csv", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "transactions.csv")
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, "id", rows[0][0])

	rec = do(t, s, http.MethodGet, "/api/accounts/acct_01HZZZZZZZZZZZZZZZZZZZZZZZ/transactions", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEquity(t *testing.T) {
	s, _ := newTestServer(t)
	a := openAccount(t, s, "dave")
	base := "/api/accounts/" + a.ID

	rec := do(t, s, http.MethodGet, base+"/equity", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	_, err := s.engine.Snapshot(context.Background(), a.ID)
	require.NoError(t, err)

	rec = do(t, s, http.MethodGet, base+"/equity", nil)
	assert.Len(t, decodeBody[[]ledger.EquitySnapshot](t, rec), 1)

	rec = do(t, s, http.MethodGet, base+"/equity?format=CSV", nil)
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "10000.00", rows[1][3])
}

func TestMarketRoutes(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/quotes/aapl", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100.0, decodeBody[market.Quote](t, rec).Price)

	rec = do(t, s, http.MethodGet, "/api/quotes/NOPE", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "quote unavailable")

	rec = do(t, s, http.MethodGet, "/api/quotes/slow", nil)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "Gateway Timeout", errorMessage(t, rec))

	rec = do(t, s, http.MethodGet, "/api/search?q=app", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "APP", decodeBody[[]market.SearchResult](t, rec)[0].Symbol)

	rec = do(t, s, http.MethodGet, "/api/search?q=none", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChartRoute(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/charts/AAPL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	c := decodeBody[charts.Chart](t, rec)
	assert.Equal(t, market.DefaultRange, c.Range)
	assert.Len(t, c.Candles, 30)
	assert.Len(t, c.Overlays.SMA20, 30)
	assert.Nil(t, c.Overlays.SMA20[18])
	require.NotNil(t, c.Overlays.SMA20[19])
	assert.InDelta(t, 19.5, *c.Overlays.SMA20[19], 1e-9)

	rec = do(t, s, http.MethodGet, "/api/charts/AAPL?range=1y", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/charts/AAPL?range=forever", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/charts/NOPE", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/accounts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", ledger.ErrInvalidInput), http.StatusBadRequest},
		{ledger.ErrAccountNotFound, http.StatusNotFound},
		{ledger.ErrAccountExists, http.StatusConflict},
		{ledger.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{ledger.ErrInsufficientShares, http.StatusUnprocessableEntity},
		{market.ErrQuoteUnavailable, http.StatusBadGateway},
		{ledger.ErrPersistence, http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("%w: AAPL: %w", market.ErrQuoteUnavailable, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("mystery"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestStartShutdown(t *testing.T) {
	s, _ := newTestServer(t)

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	// Start may not have bound yet; Shutdown before or after is clean.
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-done)
}
