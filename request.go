package vault

import (
	"context"
	"fmt"

	"github.com/xraph/vault/id"
	"github.com/xraph/vault/types"
)

// Op names a request operation for Handle.
type Op string

const (
	OpDeposit   Op = "deposit"
	OpWithdraw  Op = "withdraw"
	OpReconcile Op = "reconcile"
)

// Request is a single call routed through Handle, as a hosting environment
// delivers it: who is calling, which operation, how much value came with it.
type Request struct {
	Op     Op           `json:"op,omitempty"`
	Caller id.AccountID `json:"caller"`
	Amount types.Amount `json:"amount"`
	// Data is any payload the operation did not recognize. A request with
	// no Op and no Data is a bare value transfer.
	Data []byte `json:"data,omitempty"`
}

// Handle dispatches req. A bare value transfer goes to Receive; a request
// matching no operation fails with ErrInvalidOperation instead of being
// absorbed as a deposit.
func (v *Vault) Handle(ctx context.Context, req Request) error {
	switch req.Op {
	case OpDeposit:
		return v.Deposit(ctx, req.Caller, req.Amount)
	case OpWithdraw:
		return v.Withdraw(ctx, req.Caller, req.Amount)
	case OpReconcile:
		return v.Reconcile(ctx)
	case "":
		if len(req.Data) == 0 {
			return v.Receive(ctx, req.Caller, req.Amount)
		}
		return fmt.Errorf("%w: unrecognized payload of %d bytes", ErrInvalidOperation, len(req.Data))
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOperation, req.Op)
	}
}
