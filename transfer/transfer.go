// Package transfer moves value out of the vault.
//
// A Gateway performs the outbound transfer after the ledger has already been
// debited; a Custodian reports the value actually held, which reconciliation
// compares against the ledger; a Receiver takes in deposited value. Pool is
// an in-process implementation of all three.
//
// Recipients run their callback with the context they are handed. Calls they
// make back into the vault must use that context: the vault identifies
// reentrant calls by it.
package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/vault/id"
	"github.com/xraph/vault/types"
)

// Errors reported by Pool deliveries.
var (
	ErrInsufficientFunds = errors.New("transfer: custodian holds less than the requested amount")
	ErrBudgetExhausted   = errors.New("transfer: recipient exhausted its resource budget")
	ErrDeadlineExceeded  = errors.New("transfer: recipient exceeded its time budget")
	ErrRecipientPanic    = errors.New("transfer: recipient panicked")
)

// Gateway performs outbound transfers.
type Gateway interface {
	// Send transfers amount to to. A non-nil error means nothing was delivered.
	Send(ctx context.Context, to id.AccountID, amount types.Amount) error
}

// Custodian reports the value actually held on behalf of the vault.
type Custodian interface {
	Held(ctx context.Context) (types.Amount, error)
}

// Receiver takes in value arriving with a deposit.
type Receiver interface {
	Accept(ctx context.Context, from id.AccountID, amount types.Amount) error
}

// Delivery describes one outbound transfer as seen by its recipient.
type Delivery struct {
	ID     id.TransferID `json:"id"`
	To     id.AccountID  `json:"to"`
	Amount types.Amount  `json:"amount"`
	At     time.Time     `json:"at"`
}

// Recipient is the callback path of a transfer target.
// Returning an error refuses the delivery.
type Recipient interface {
	OnReceive(ctx context.Context, d Delivery) error
}

// RecipientFunc is an adapter to use a plain function as a Recipient.
type RecipientFunc func(ctx context.Context, d Delivery) error

// OnReceive implements Recipient.
func (f RecipientFunc) OnReceive(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}
