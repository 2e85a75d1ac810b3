package vault_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/vault"
	"github.com/xraph/vault/id"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want vault.Code
	}{
		{"nil", nil, vault.CodeNone},
		{"zero", vault.ErrZeroAmount, vault.CodeZeroAmount},
		{"capacity", &vault.CapacityExceededError{Attempted: 5, Remaining: 1}, vault.CodeCapacityExceeded},
		{"limit", &vault.LimitExceededError{Attempted: 5, Limit: 1}, vault.CodeLimitExceeded},
		{"balance", &vault.InsufficientBalanceError{Available: 1, Requested: 5}, vault.CodeInsufficientBalance},
		{"transfer", &vault.TransferFailedError{To: id.NewAccountID(), Amount: 1}, vault.CodeTransferFailed},
		{"wrapped reentrancy", fmt.Errorf("outer: %w", vault.ErrReentrancy), vault.CodeReentrancy},
		{"invalid operation", fmt.Errorf("%w: %q", vault.ErrInvalidOperation, "mint"), vault.CodeInvalidOperation},
		{"invalid limit", vault.ErrInvalidLimit, vault.CodeInvalidLimit},
		{"transfer caused by zero amount", &vault.TransferFailedError{Err: vault.ErrZeroAmount}, vault.CodeTransferFailed},
		{"transfer caused by insufficient balance", &vault.TransferFailedError{Err: &vault.InsufficientBalanceError{}}, vault.CodeTransferFailed},
		{"store failure", errors.New("disk on fire"), vault.CodeInternal},
		{"context", context.Canceled, vault.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vault.ErrorCode(tt.err); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		policy    bool
		retryable bool
	}{
		{"zero", vault.ErrZeroAmount, true, false},
		{"capacity", &vault.CapacityExceededError{}, true, true},
		{"limit", &vault.LimitExceededError{}, true, false},
		{"balance", &vault.InsufficientBalanceError{}, true, false},
		{"transfer", &vault.TransferFailedError{}, false, true},
		{"reentrancy", vault.ErrReentrancy, false, true},
		{"invalid account", vault.ErrInvalidAccount, false, false},
		{"transfer caused by policy error", &vault.TransferFailedError{Err: vault.ErrZeroAmount}, false, true},
		{"transfer caused by limit error", &vault.TransferFailedError{Err: &vault.LimitExceededError{}}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vault.IsPolicyError(tt.err); got != tt.policy {
				t.Errorf("IsPolicyError: got %v, want %v", got, tt.policy)
			}
			if got := vault.IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable: got %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestTransferFailedErrorMessage(t *testing.T) {
	to := id.NewAccountID()
	cause := errors.New("recipient refused")

	err := &vault.TransferFailedError{To: to, Amount: 7, Err: cause}
	want := fmt.Sprintf("vault: transfer of 7 to %s failed: recipient refused", to)
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not unwrapped")
	}

	bare := &vault.TransferFailedError{To: to, Amount: 7}
	if bare.Error() != fmt.Sprintf("vault: transfer of 7 to %s failed", to) {
		t.Errorf("got %q", bare.Error())
	}
}
