package transfer

import (
	"context"
	"fmt"
	"sync"
)

type meterKey struct{}

// Meter tracks the resource units a recipient callback consumes.
// Recipients charge it for the work they do; under the capped policy an
// overdrawn meter fails the delivery.
type Meter struct {
	mu        sync.Mutex
	limit     uint64
	used      uint64
	unlimited bool
	overdrawn bool
}

// NewMeter returns a meter with limit units.
func NewMeter(limit uint64) *Meter {
	return &Meter{limit: limit}
}

// UnlimitedMeter returns a meter that never runs out.
func UnlimitedMeter() *Meter {
	return &Meter{unlimited: true}
}

// Consume charges units against the budget.
func (m *Meter) Consume(units uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unlimited {
		m.used += units
		return nil
	}
	if units > m.limit-m.used {
		m.overdrawn = true
		return fmt.Errorf("%w: requested %d, remaining %d", ErrBudgetExhausted, units, m.limit-m.used)
	}
	m.used += units
	return nil
}

// Remaining returns the units left. Unlimited meters report ^uint64(0).
func (m *Meter) Remaining() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unlimited {
		return ^uint64(0)
	}
	return m.limit - m.used
}

// Used returns the units consumed so far.
func (m *Meter) Used() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

// Overdrawn reports whether a Consume call was refused.
func (m *Meter) Overdrawn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overdrawn
}

// WithMeter returns a context carrying m.
func WithMeter(ctx context.Context, m *Meter) context.Context {
	return context.WithValue(ctx, meterKey{}, m)
}

// MeterFrom returns the meter forwarded to a recipient callback, or an
// unlimited meter when none was forwarded.
func MeterFrom(ctx context.Context) *Meter {
	if m, ok := ctx.Value(meterKey{}).(*Meter); ok && m != nil {
		return m
	}
	return UnlimitedMeter()
}
