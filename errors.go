package vault

import (
	"errors"
	"fmt"

	"github.com/xraph/vault/id"
	"github.com/xraph/vault/types"
)

// Sentinel errors for common failure scenarios.
var (
	// Request errors
	ErrZeroAmount          = errors.New("vault: amount must be greater than zero")
	ErrCapacityExceeded    = errors.New("vault: capacity exceeded")
	ErrLimitExceeded       = errors.New("vault: withdrawal limit exceeded")
	ErrInsufficientBalance = errors.New("vault: insufficient balance")
	ErrTransferFailed      = errors.New("vault: transfer failed")
	ErrReentrancy          = errors.New("vault: reentrant call")
	ErrInvalidAccount      = errors.New("vault: invalid account")
	ErrInvalidOperation    = errors.New("vault: invalid operation")

	// Construction errors
	ErrInvalidCapacity = errors.New("vault: invalid capacity")
	ErrInvalidLimit    = errors.New("vault: invalid withdrawal limit")

	// Store errors
	ErrStoreClosed = errors.New("vault: store is closed")
	ErrTxDone      = errors.New("vault: transaction already finished")
	ErrCorruptData = errors.New("vault: stored data is inconsistent")
)

// CapacityExceededError reports a deposit that would push the recorded total
// above the capacity ceiling.
type CapacityExceededError struct {
	Attempted types.Amount
	Remaining types.Amount
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("vault: capacity exceeded: attempted %d, remaining %d", e.Attempted, e.Remaining)
}

// Is matches ErrCapacityExceeded.
func (e *CapacityExceededError) Is(target error) bool { return target == ErrCapacityExceeded }

// LimitExceededError reports a withdrawal above the per-operation limit.
type LimitExceededError struct {
	Attempted types.Amount
	Limit     types.Amount
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("vault: withdrawal limit exceeded: attempted %d, limit %d", e.Attempted, e.Limit)
}

// Is matches ErrLimitExceeded.
func (e *LimitExceededError) Is(target error) bool { return target == ErrLimitExceeded }

// InsufficientBalanceError reports a withdrawal above the caller's balance.
type InsufficientBalanceError struct {
	Available types.Amount
	Requested types.Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("vault: insufficient balance: available %d, requested %d", e.Available, e.Requested)
}

// Is matches ErrInsufficientBalance.
func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// TransferFailedError reports an outbound transfer that did not complete.
// The withdrawal that triggered it has been rolled back.
type TransferFailedError struct {
	To     id.AccountID
	Amount types.Amount
	Err    error
}

func (e *TransferFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("vault: transfer of %d to %s failed", e.Amount, e.To)
	}
	return fmt.Sprintf("vault: transfer of %d to %s failed: %v", e.Amount, e.To, e.Err)
}

// Is matches ErrTransferFailed.
func (e *TransferFailedError) Is(target error) bool { return target == ErrTransferFailed }

// Unwrap returns the gateway's error.
func (e *TransferFailedError) Unwrap() error { return e.Err }

// Code is the closed set of failure kinds a Vault reports.
type Code string

const (
	CodeNone                Code = ""
	CodeZeroAmount          Code = "ZeroAmount"
	CodeCapacityExceeded    Code = "CapacityExceeded"
	CodeLimitExceeded       Code = "LimitExceeded"
	CodeInsufficientBalance Code = "InsufficientBalance"
	CodeTransferFailed      Code = "TransferFailed"
	CodeReentrancy          Code = "Reentrancy"
	CodeInvalidAccount      Code = "InvalidAccount"
	CodeInvalidOperation    Code = "InvalidOperation"
	CodeInvalidCapacity     Code = "InvalidCapacity"
	CodeInvalidLimit        Code = "InvalidLimit"
	CodeInternal            Code = "Internal"
)

var codes = []struct {
	err  error
	code Code
}{
	// A failed transfer wraps the recipient's error, which may match any
	// other entry.
	{ErrTransferFailed, CodeTransferFailed},
	{ErrZeroAmount, CodeZeroAmount},
	{ErrCapacityExceeded, CodeCapacityExceeded},
	{ErrLimitExceeded, CodeLimitExceeded},
	{ErrInsufficientBalance, CodeInsufficientBalance},
	{ErrReentrancy, CodeReentrancy},
	{ErrInvalidAccount, CodeInvalidAccount},
	{ErrInvalidOperation, CodeInvalidOperation},
	{ErrInvalidCapacity, CodeInvalidCapacity},
	{ErrInvalidLimit, CodeInvalidLimit},
}

// ErrorCode maps err onto the closed failure taxonomy. Errors outside the
// taxonomy (store or driver failures) map to CodeInternal; nil maps to CodeNone.
func ErrorCode(err error) Code {
	if err == nil {
		return CodeNone
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// IsPolicyError returns true if the request was rejected by validation
// before any mutation. A failed transfer never is, whatever its cause.
func IsPolicyError(err error) bool {
	if errors.Is(err, ErrTransferFailed) {
		return false
	}
	return errors.Is(err, ErrZeroAmount) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrLimitExceeded) ||
		errors.Is(err, ErrInsufficientBalance)
}

// IsRetryable returns true if the same request may succeed later without
// the caller changing it.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransferFailed) ||
		errors.Is(err, ErrReentrancy) ||
		errors.Is(err, ErrCapacityExceeded)
}
