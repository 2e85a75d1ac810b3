package transfer

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how much of its resources a recipient callback may use.
type Mode string

const (
	// ModeUnrestricted runs the callback inline with no budget.
	ModeUnrestricted Mode = "unrestricted"
	// ModeCapped runs the callback under a unit budget and a deadline.
	ModeCapped Mode = "capped"
)

const (
	// DefaultStipend is the unit budget forwarded under the capped policy.
	DefaultStipend uint64 = 2300
	// DefaultTimeout is the deadline forwarded under the capped policy.
	DefaultTimeout = 5 * time.Second
)

// Policy is the delivery policy applied to recipient callbacks.
type Policy struct {
	Mode    Mode          `json:"mode" mapstructure:"mode" yaml:"mode"`
	Budget  uint64        `json:"budget" mapstructure:"budget" yaml:"budget"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" yaml:"timeout"`
}

// Unrestricted forwards all available resources to the recipient.
func Unrestricted() Policy {
	return Policy{Mode: ModeUnrestricted}
}

// Capped forwards budget units and a timeout to the recipient.
// A zero timeout leaves only the unit budget.
func Capped(budget uint64, timeout time.Duration) Policy {
	return Policy{Mode: ModeCapped, Budget: budget, Timeout: timeout}
}

// DefaultPolicy returns Capped(DefaultStipend, DefaultTimeout).
func DefaultPolicy() Policy {
	return Capped(DefaultStipend, DefaultTimeout)
}

// ParsePolicy builds a Policy from configuration values. An empty mode
// selects the default capped policy; zero budget and timeout take defaults.
func ParsePolicy(mode string, budget uint64, timeout time.Duration) (Policy, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(mode))) {
	case ModeUnrestricted:
		return Unrestricted(), nil
	case ModeCapped, "":
		if budget == 0 {
			budget = DefaultStipend
		}
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		return Capped(budget, timeout), nil
	default:
		return Policy{}, fmt.Errorf("transfer: unknown policy mode %q", mode)
	}
}

// String implements fmt.Stringer.
func (p Policy) String() string {
	if p.Mode == ModeUnrestricted {
		return string(ModeUnrestricted)
	}
	return fmt.Sprintf("%s(budget=%d, timeout=%s)", p.Mode, p.Budget, p.Timeout)
}
