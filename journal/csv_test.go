package journal

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTransactionsCSV(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	txs := []ledger.Transaction{
		{
			ID:         "txn_1",
			Symbol:     "AAPL",
			Side:       ledger.Buy,
			Quantity:   3,
			Price:      decimal.RequireFromString("187.4412"),
			Total:      decimal.RequireFromString("562.3236"),
			ExecutedAt: at,
		},
		{
			ID:         "txn_2",
			Symbol:     "BRK,B",
			Side:       ledger.Sell,
			Quantity:   1,
			Price:      decimal.RequireFromString("10"),
			Total:      decimal.RequireFromString("10"),
			ExecutedAt: at.Add(time.Hour),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactionsCSV(&buf, txs))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, TransactionHeader, recs[0])
	assert.Equal(t, []string{"txn_1", "2024-01-02T03:04:05Z", "AAPL", "buy", "3", "187.4412", "562.32"}, recs[1])
	// quoting survives a comma in the symbol
	assert.Equal(t, "BRK,B", recs[2][2])
	assert.Equal(t, "10.00", recs[2][6])
}

func TestWriteTransactionsCSVEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteTransactionsCSV(&buf, nil))
	assert.Equal(t, "id,executed_at,symbol,side,quantity,price,total\n", buf.String())
}

func TestWriteEquityCSV(t *testing.T) {
	t.Parallel()

	snaps := []ledger.EquitySnapshot{{
		Time:          time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
		Cash:          decimal.RequireFromString("1000.1"),
		HoldingsValue: decimal.RequireFromString("9000"),
		TotalValue:    decimal.RequireFromString("10000.1"),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteEquityCSV(&buf, snaps))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, EquityHeader, recs[0])
	assert.Equal(t, []string{"2024-02-03T04:05:06Z", "1000.10", "9000.00", "10000.10"}, recs[1])
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestWriteCSVPropagatesWriterError(t *testing.T) {
	t.Parallel()

	err := WriteTransactionsCSV(failWriter{}, []ledger.Transaction{{ID: "x"}})
	assert.EqualError(t, err, "closed pipe")
}
