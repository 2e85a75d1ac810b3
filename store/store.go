// Package store defines the persistence contract shared by every Vault
// backend. Reads go through Store; every mutation happens inside RunInTx.
package store

import (
	"context"

	"github.com/xraph/vault/account"
	"github.com/xraph/vault/id"
	"github.com/xraph/vault/journal"
	"github.com/xraph/vault/types"
)

// Reader is the read surface shared by Store and Tx.
type Reader interface {
	// GetAccount returns the account record, or an empty record if the
	// account has never been credited. A Nil ID yields vault.ErrInvalidAccount.
	GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error)
	GetTotals(ctx context.Context) (*account.Totals, error)
}

// Store is the unified storage interface for Vault.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Account methods
	GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error)
	GetTotals(ctx context.Context) (*account.Totals, error)

	// Journal methods
	ListEntries(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error)

	// RunInTx runs fn in a transaction. The transaction commits when fn
	// returns nil; any error discards every effect fn performed through tx.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the mutation surface available inside RunInTx.
//
// Credit and Debit do not validate limits or sufficiency; callers prove
// safety before calling them.
type Tx interface {
	GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error)
	GetTotals(ctx context.Context) (*account.Totals, error)

	// Credit adds amount to the account balance, bumps its deposit count,
	// and raises the recorded total and global deposit count.
	Credit(ctx context.Context, accountID id.AccountID, amount types.Amount) (*account.Account, error)

	// Debit subtracts amount from the account balance, bumps its withdrawal
	// count, and lowers the recorded total while bumping the global
	// withdrawal count.
	Debit(ctx context.Context, accountID id.AccountID, amount types.Amount) (*account.Account, error)

	// RaiseTotal sets the recorded total to to if to is higher, and bumps the
	// reconciliation count. It never lowers the total.
	RaiseTotal(ctx context.Context, to types.Amount) (*account.Totals, error)

	// AppendEntry assigns e.Seq and persists e.
	AppendEntry(ctx context.Context, e *journal.Entry) error
}

var (
	_ Reader        = (Store)(nil)
	_ Reader        = (Tx)(nil)
	_ account.Store = (Store)(nil)
	_ journal.Store = (Store)(nil)
)
