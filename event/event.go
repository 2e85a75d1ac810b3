// Package event defines the notifications a Vault emits to observers.
// Notifications are informational; nothing inside the vault consumes them.
package event

import (
	"time"

	"github.com/xraph/vault/id"
	"github.com/xraph/vault/types"
)

// DepositOccurred is emitted after a deposit commits.
type DepositOccurred struct {
	ID         id.EventID   `json:"id"`
	Account    id.AccountID `json:"account"`
	Amount     types.Amount `json:"amount"`
	NewBalance types.Amount `json:"new_balance"`
	EntryID    id.EntryID   `json:"entry_id"`
	At         time.Time    `json:"at"`
}

// WithdrawalOccurred is emitted after a withdrawal and its transfer commit.
type WithdrawalOccurred struct {
	ID         id.EventID   `json:"id"`
	Account    id.AccountID `json:"account"`
	Amount     types.Amount `json:"amount"`
	NewBalance types.Amount `json:"new_balance"`
	EntryID    id.EntryID   `json:"entry_id"`
	At         time.Time    `json:"at"`
}

// FundsReconciled is emitted when reconciliation absorbs surplus held value.
type FundsReconciled struct {
	ID                 id.EventID   `json:"id"`
	Actual             types.Amount `json:"actual"`
	PreviouslyRecorded types.Amount `json:"previously_recorded"`
	At                 time.Time    `json:"at"`
}

// Surplus returns the amount absorbed into the recorded total.
func (e *FundsReconciled) Surplus() types.Amount {
	return e.Actual.SaturatingSub(e.PreviouslyRecorded)
}

// TransferFailed is emitted after a withdrawal was rolled back because its
// outbound transfer did not complete.
type TransferFailed struct {
	ID      id.EventID   `json:"id"`
	Account id.AccountID `json:"account"`
	Amount  types.Amount `json:"amount"`
	Reason  string       `json:"reason"`
	At      time.Time    `json:"at"`
}

// ReentrancyBlocked is emitted when a guarded operation is entered while
// another guarded operation of the same vault is in flight on the call path.
type ReentrancyBlocked struct {
	ID        id.EventID   `json:"id"`
	Operation string       `json:"operation"`
	Account   id.AccountID `json:"account"`
	Amount    types.Amount `json:"amount"`
	At        time.Time    `json:"at"`
}
