package vault

import (
	"fmt"

	"github.com/xraph/vault/types"
)

// Config holds the two parameters fixed when a Vault is created.
type Config struct {
	// Capacity is the ceiling on the recorded total. Must be in (0, MaxStorable].
	Capacity types.Amount `json:"capacity" mapstructure:"capacity" yaml:"capacity"`

	// WithdrawalLimit bounds the amount removable by a single withdrawal.
	// Must be positive and strictly below Capacity.
	WithdrawalLimit types.Amount `json:"withdrawal_limit" mapstructure:"withdrawal_limit" yaml:"withdrawal_limit"`
}

// Validate checks the construction constraints.
func (c Config) Validate() error {
	if c.Capacity == 0 {
		return fmt.Errorf("%w: capacity must be greater than zero", ErrInvalidCapacity)
	}
	if c.Capacity > types.MaxStorable {
		return fmt.Errorf("%w: capacity %d exceeds %d", ErrInvalidCapacity, c.Capacity, types.MaxStorable)
	}
	if c.WithdrawalLimit == 0 {
		return fmt.Errorf("%w: limit must be greater than zero", ErrInvalidLimit)
	}
	if c.WithdrawalLimit >= c.Capacity {
		return fmt.Errorf("%w: limit %d must be below capacity %d", ErrInvalidLimit, c.WithdrawalLimit, c.Capacity)
	}
	return nil
}

// Guard validates state-changing requests against the Config and the
// current ledger state. Its checks are pure; it holds no state of its own.
type Guard struct {
	cfg Config
}

// NewGuard creates a Guard, rejecting an invalid Config.
func NewGuard(cfg Config) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Guard{cfg: cfg}, nil
}

// Config returns the immutable configuration.
func (g *Guard) Config() Config { return g.cfg }

// CheckDeposit validates a deposit of amount against the recorded total.
func (g *Guard) CheckDeposit(recorded, amount types.Amount) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}

	// Reconciliation may have pushed the total past the ceiling.
	remaining := g.cfg.Capacity.SaturatingSub(recorded)
	if amount > remaining {
		return &CapacityExceededError{Attempted: amount, Remaining: remaining}
	}
	return nil
}

// CheckWithdrawal validates a withdrawal of amount against the caller's balance.
func (g *Guard) CheckWithdrawal(balance, amount types.Amount) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	if amount > g.cfg.WithdrawalLimit {
		return &LimitExceededError{Attempted: amount, Limit: g.cfg.WithdrawalLimit}
	}
	if amount > balance {
		return &InsufficientBalanceError{Available: balance, Requested: amount}
	}
	return nil
}
