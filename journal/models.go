// Package journal records every committed ledger mutation in commit order.
package journal

import (
	"time"

	"github.com/xraph/vault/id"
	"github.com/xraph/vault/types"
)

// Kind is the type of mutation an Entry records.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindReconcile  Kind = "reconcile"
)

// Entry is one committed mutation. Entries are written in the same
// transaction as the mutation, so a rolled-back request leaves none.
type Entry struct {
	ID id.EntryID `json:"id"`
	// Seq is assigned by the store and strictly increases with commit order.
	Seq       uint64       `json:"seq"`
	Kind      Kind         `json:"kind"`
	AccountID id.AccountID `json:"account_id,omitempty"` // Nil for reconcile entries
	Amount    types.Amount `json:"amount"`
	// BalanceAfter is the account balance after the mutation (zero for reconcile).
	BalanceAfter types.Amount `json:"balance_after"`
	TotalAfter   types.Amount `json:"total_after"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ListOpts filters journal queries.
type ListOpts struct {
	AccountID id.AccountID // Nil = all accounts
	Kind      Kind         // "" = all kinds
	Limit     int
	Offset    int
}

// Matches reports whether e passes the filter part of opts.
func (o ListOpts) Matches(e *Entry) bool {
	if !o.AccountID.IsNil() && e.AccountID != o.AccountID {
		return false
	}
	if o.Kind != "" && e.Kind != o.Kind {
		return false
	}
	return true
}
