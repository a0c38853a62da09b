// Package journal persists the ledger. SQLite is the durable store; CSV
// writers export transaction and equity history.
package journal

import (
	"fmt"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
)

const (
	TypeSQLite = "sqlite"
	TypeMemory = "memory"
)

// timeFormat is fixed width and always UTC so stored timestamps sort
// lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

// Open returns the store named by typ. path is ignored for memory stores.
func Open(typ, path string) (ledger.Store, error) {
	switch typ {
	case TypeSQLite, "":
		return NewSQLite(path)
	case TypeMemory:
		return ledger.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("journal: unknown type %q", typ)
}
