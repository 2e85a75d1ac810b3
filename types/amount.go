// Package types provides common types used across Vault.
package types

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// ErrOverflow is returned when an Amount operation leaves the representable range.
var ErrOverflow = errors.New("amount: overflow")

// ErrUnderflow is returned when a subtraction would go below zero.
var ErrUnderflow = errors.New("amount: underflow")

// MaxStorable is the largest Amount every store backend can persist.
// Backends keep amounts in signed 64-bit columns.
const MaxStorable Amount = math.MaxInt64

// Amount is a quantity of the vault's single fungible unit.
// It is unsigned; a balance can never be negative.
type Amount uint64

// Zero is the zero Amount.
const Zero Amount = 0

// Add returns a+b, or ErrOverflow if the sum does not fit.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b, or ErrUnderflow if b is greater than a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// SaturatingSub returns a-b, clamped at zero.
func (a Amount) SaturatingSub(b Amount) Amount {
	if b > a {
		return 0
	}
	return a - b
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// Uint64 returns the raw value.
func (a Amount) Uint64() uint64 { return uint64(a) }

// Int64 returns the amount as a signed 64-bit value for storage.
// Callers must keep amounts at or below MaxStorable.
func (a Amount) Int64() int64 { return int64(a) } //nolint:gosec // bounded by MaxStorable

// FromInt64 converts a stored signed value back into an Amount.
// Negative values are treated as corrupt and clamp to zero.
func FromInt64(v int64) Amount {
	if v < 0 {
		return 0
	}
	return Amount(v)
}

// String returns the decimal representation.
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// MarshalJSON encodes the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(a))
}

// UnmarshalJSON accepts a JSON number or a decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*a = Amount(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*a = Amount(n)
	return nil
}

// Sum adds values, returning ErrOverflow if the total does not fit.
func Sum(values ...Amount) (Amount, error) {
	var total Amount
	for _, v := range values {
		next, err := total.Add(v)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}
