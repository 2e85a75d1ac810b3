package account

import (
	"context"

	"github.com/xraph/vault/id"
)

// Store defines read access to account balances and aggregates.
type Store interface {
	GetAccount(ctx context.Context, accountID id.AccountID) (*Account, error)
	GetTotals(ctx context.Context) (*Totals, error)
}
