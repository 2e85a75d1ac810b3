// Package vault provides a single-asset custodial ledger for Go applications.
//
// Vault is designed as a library, not a service. It accepts deposits of one
// fungible unit of value into per-caller accounts, enforces a global capacity
// ceiling on the recorded total, and pays out withdrawals bounded by a fixed
// per-operation limit:
//
//   - Typed, payload-carrying errors for every rejected request
//   - Checks-effects-interactions ordering with full rollback on failed transfers
//   - A reentrancy lock over every transfer-capable operation
//   - Drift reconciliation against the value actually held
//   - Pluggable storage (memory, SQLite, PostgreSQL, MongoDB)
//   - Observer plugins for audit trails and metrics
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/vault"
//	    "github.com/xraph/vault/store/memory"
//	)
//
//	v, err := vault.New(memory.New(), vault.Config{
//	    Capacity:        1000,
//	    WithdrawalLimit: 100,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := v.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Stop()
//
//	alice := vault.NewAccountID()
//	if err := v.Deposit(ctx, alice, 100); err != nil {
//	    log.Fatal(err)
//	}
//
// # Errors
//
// Every failure matches a sentinel with errors.Is; the ones that carry data
// are structs retrievable with errors.As:
//
//	var ce *vault.CapacityExceededError
//	if errors.As(err, &ce) {
//	    fmt.Println("room left:", ce.Remaining)
//	}
//
// # Transfers and reentrancy
//
// Withdraw debits the ledger before handing value to the transfer.Gateway.
// A recipient callback that calls back into the vault must pass along the
// context it was given; a guarded call on that context fails with
// ErrReentrancy, while reads on it observe the already-debited balance.
// Requests from other goroutines wait for the in-flight request to finish.
package vault
