package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrader/internal/charts"
	"github.com/rustyeddy/papertrader/ledger"
)

// fakeYahoo serves the chart and search endpoints for AAPL only, quoting
// the price held in cents.
func fakeYahoo(t *testing.T, cents *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/") != "AAPL" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
			return
		}

		start := time.Date(2024, 1, 1, 14, 30, 0, 0, time.UTC)
		var ts []int64
		var closes []float64
		for i := 0; i < 30; i++ {
			ts = append(ts, start.AddDate(0, 0, i).Unix())
			closes = append(closes, float64(90+i))
		}
		body := map[string]any{
			"chart": map[string]any{
				"result": []any{map[string]any{
					"meta": map[string]any{
						"symbol":             "AAPL",
						"currency":           "USD",
						"longName":           "Apple Inc.",
						"regularMarketPrice": float64(cents.Load()) / 100,
						"chartPreviousClose": 100.0,
						"regularMarketTime":  start.Unix(),
					},
					"timestamp":  ts,
					"indicators": map[string]any{"quote": []any{map[string]any{"close": closes}}},
				}},
				"error": nil,
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(body))
	})
	mux.HandleFunc("/v1/finance/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quotes":[{"symbol":"AAPL","shortname":"Apple Inc.","exchDisp":"NASDAQ","quoteType":"EQUITY"}]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	t     *testing.T
	db    string
	cents atomic.Int64
}

func newHarness(t *testing.T) *harness {
	h := &harness{t: t, db: filepath.Join(t.TempDir(), "pt.db")}
	h.setPrice(110)
	srv := fakeYahoo(t, &h.cents)
	t.Setenv("PAPERTRADER_MARKET_BASE_URL", srv.URL)
	t.Setenv("PAPERTRADER_MARKET_SEARCH_URL", srv.URL)
	t.Setenv("PAPERTRADER_SNAPSHOT_SCHEDULE", "")
	return h
}

func (h *harness) setPrice(p float64) {
	h.cents.Store(int64(p * 100))
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--db", h.db, "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func TestTradingSession(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("account", "open", "alice")
	assert.Contains(t, out, "Opened account alice")
	assert.Contains(t, out, "10000.00 USD")

	h.setPrice(100)
	out = h.mustRun("buy", "alice", "AAPL", "10")
	assert.Contains(t, out, "buy 10 AAPL @ 100.00 = 1000.00")
	assert.Contains(t, out, "9000.00 USD")

	// the next order fills at the moved quote
	h.setPrice(110)
	out = h.mustRun("buy", "alice", "aapl", "5")
	assert.Contains(t, out, "@ 110.00 = 550.00")
	assert.Contains(t, out, "avg cost 103.33")

	_, err := h.run("sell", "alice", "AAPL", "100")
	assert.ErrorContains(t, err, "insufficient shares")

	// fills are always priced by the provider
	_, err = h.run("buy", "alice", "AAPL", "1", "--price", "0.01")
	assert.ErrorContains(t, err, "unknown flag: --price")

	_, err = h.run("buy", "alice", "AAPL", "ten")
	assert.ErrorContains(t, err, "invalid input")

	out = h.mustRun("sell", "alice", "AAPL", "3")
	assert.Contains(t, out, "12 AAPL")

	out = h.mustRun("summary", "alice")
	assert.Contains(t, out, "AAPL")
	// cash 8450 + 330 proceeds, holdings 12 x 110
	assert.Contains(t, out, "Cash:        8780.00 USD")
	assert.Contains(t, out, "Holdings:    1320.00 USD")
	assert.Contains(t, out, "Total:       10100.00 USD")

	out = h.mustRun("history", "alice", "--csv")
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "sell", rows[1][3])

	out = h.mustRun("history", "alice", "-n", "1")
	assert.Equal(t, 2, strings.Count(out, "\n"))

	out = h.mustRun("equity", "alice", "--snapshot")
	assert.Contains(t, out, "10100.00")

	out = h.mustRun("account", "list")
	assert.Contains(t, out, "alice")

	out = h.mustRun("account", "show", "ALICE")
	assert.Contains(t, out, "Cash:     8780.00 USD")
}

func TestServeEngineIgnoresQuoteCache(t *testing.T) {
	h := newHarness(t)
	h.mustRun("account", "open", "alice")

	o := &options{dbPath: h.db, logLevel: "error"}
	a, err := o.newApp(false)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	acct, err := a.resolveAccount(ctx, "alice")
	require.NoError(t, err)

	res, err := a.engine.PlaceMarketOrder(ctx, acct.ID, "AAPL", 10, ledger.Buy)
	require.NoError(t, err)
	assert.Equal(t, "110", res.Transaction.Price.String())

	_, err = a.market.Quote(ctx, "AAPL")
	require.NoError(t, err)
	h.setPrice(150)

	// display quotes may be served from the cache
	q, err := a.market.Quote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 110.0, q.Price)

	res, err = a.engine.PlaceMarketOrder(ctx, acct.ID, "AAPL", 10, ledger.Sell)
	require.NoError(t, err)
	assert.Equal(t, "150", res.Transaction.Price.String())
	assert.Equal(t, "10400.00", res.Cash.StringFixed(2))
}

func TestAccountErrors(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("account", "list")
	assert.Contains(t, out, "No accounts")

	h.mustRun("account", "open", "bob")
	_, err := h.run("account", "open", "Bob")
	assert.ErrorContains(t, err, "already exists")

	_, err = h.run("account", "show", "nobody")
	assert.ErrorContains(t, err, "account not found")
}

func TestMarketCommands(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("quote", "AAPL")
	assert.Contains(t, out, "110.00")
	assert.Contains(t, out, "+10.00 (+10.00%)")

	_, err := h.run("quote", "NOPE")
	assert.ErrorContains(t, err, "quote unavailable")

	out = h.mustRun("search", "apple")
	assert.Contains(t, out, "NASDAQ")

	out = h.mustRun("chart", "AAPL", "--json")
	var c charts.Chart
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Len(t, c.Candles, 30)
	assert.Equal(t, 11, c.Overlays.SMA20.Defined())

	out = h.mustRun("chart", "AAPL", "-n", "5")
	assert.Contains(t, out, "SMA20")
	assert.Equal(t, 8, strings.Count(out, "\n"))

	_, err = h.run("chart", "AAPL", "--range", "10y")
	assert.ErrorContains(t, err, "unknown range")
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "pt.yaml")

	out := h.mustRun("config", "init", "-o", path)
	assert.Contains(t, out, "Created default configuration")

	out = h.mustRun("config", "validate", "-f", path)
	assert.Contains(t, out, "Configuration valid")

	out = h.mustRun("config", "show")
	assert.Contains(t, out, "db_path: "+h.db)
	assert.Contains(t, out, "level: error")
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("version")
	assert.Contains(t, out, "papertrader version "+version)
}
