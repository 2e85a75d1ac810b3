// Package account defines the per-depositor balance record and the
// vault-wide aggregates kept alongside it.
package account

import (
	"github.com/xraph/vault/id"
	"github.com/xraph/vault/types"
)

// Account is the ledger record for a single depositor.
// It is created implicitly by the first credit and never deleted.
type Account struct {
	types.Entity

	ID              id.AccountID `json:"id"`
	Balance         types.Amount `json:"balance"`
	DepositCount    uint64       `json:"deposit_count"`
	WithdrawalCount uint64       `json:"withdrawal_count"`
}

// Empty returns the implicit zero-balance record for an account that has
// never been credited.
func Empty(accountID id.AccountID) *Account {
	return &Account{ID: accountID}
}

// Stats returns the read-only view exposed to callers.
func (a *Account) Stats() Stats {
	return Stats{
		Balance:         a.Balance,
		DepositCount:    a.DepositCount,
		WithdrawalCount: a.WithdrawalCount,
	}
}

// Stats is the (balance, deposit count, withdrawal count) triple.
type Stats struct {
	Balance         types.Amount `json:"balance"`
	DepositCount    uint64       `json:"deposit_count"`
	WithdrawalCount uint64       `json:"withdrawal_count"`
}

// Totals holds the vault-wide aggregates.
type Totals struct {
	// Recorded is the total held value as the ledger knows it.
	Recorded        types.Amount `json:"recorded"`
	Deposits        uint64       `json:"deposits"`
	Withdrawals     uint64       `json:"withdrawals"`
	Reconciliations uint64       `json:"reconciliations"`
}
