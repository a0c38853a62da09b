package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
)

var (
	TransactionHeader = []string{"id", "executed_at", "symbol", "side", "quantity", "price", "total"}
	EquityHeader      = []string{"time", "cash", "holdings_value", "total_value"}
)

// WriteTransactionsCSV writes txs with a header row. Money columns keep two
// decimal places; prices keep their stored precision.
func WriteTransactionsCSV(w io.Writer, txs []ledger.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TransactionHeader); err != nil {
		return err
	}
	for _, t := range txs {
		err := cw.Write([]string{
			t.ID,
			t.ExecutedAt.UTC().Format(time.RFC3339),
			t.Symbol,
			string(t.Side),
			strconv.FormatInt(t.Quantity, 10),
			t.Price.String(),
			t.Total.StringFixed(2),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEquityCSV writes equity snapshots with a header row.
func WriteEquityCSV(w io.Writer, snaps []ledger.EquitySnapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EquityHeader); err != nil {
		return err
	}
	for _, s := range snaps {
		err := cw.Write([]string{
			s.Time.UTC().Format(time.RFC3339),
			s.Cash.StringFixed(2),
			s.HoldingsValue.StringFixed(2),
			s.TotalValue.StringFixed(2),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
