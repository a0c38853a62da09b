package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store persists ledger state.
//
// Update is the only way to change an account's cash or positions: it runs
// fn inside one storage transaction and commits only if fn returns nil.
// Implementations must make Update exclusive per account so a balance read
// inside fn is never stale by the time fn's writes commit.
type Store interface {
	CreateAccount(ctx context.Context, a Account) error
	Account(ctx context.Context, id string) (Account, error)
	Accounts(ctx context.Context) ([]Account, error)

	// Positions returns the account's holdings with Quantity > 0, ordered
	// by symbol.
	Positions(ctx context.Context, accountID string) ([]Position, error)

	// Transactions returns at most limit transactions, newest first.
	Transactions(ctx context.Context, accountID string, limit int) ([]Transaction, error)

	Update(ctx context.Context, accountID string, fn func(Tx) error) error

	RecordEquity(ctx context.Context, s EquitySnapshot) error
	// EquityHistory returns at most limit snapshots, newest first.
	EquityHistory(ctx context.Context, accountID string, limit int) ([]EquitySnapshot, error)

	Close() error
}

// Tx is the view of one account inside Store.Update.
type Tx interface {
	Account() (Account, error)
	// Position returns the stored position, or a zero-quantity position if
	// the account never held symbol.
	Position(symbol string) (Position, error)
	SetCash(cash decimal.Decimal) error
	PutPosition(p Position) error
	AppendTransaction(t Transaction) error
}
