package vault_test

import (
	"errors"
	"testing"

	"github.com/xraph/vault"
	"github.com/xraph/vault/types"
)

func newGuard(t *testing.T) *vault.Guard {
	t.Helper()
	g, err := vault.NewGuard(vault.Config{Capacity: 1000, WithdrawalLimit: 100})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestCheckDeposit(t *testing.T) {
	g := newGuard(t)

	tests := []struct {
		name      string
		recorded  types.Amount
		amount    types.Amount
		want      error
		remaining types.Amount
	}{
		{"fits", 100, 900, nil, 0},
		{"zero", 100, 0, vault.ErrZeroAmount, 0},
		{"one over", 100, 901, vault.ErrCapacityExceeded, 900},
		{"full", 1000, 1, vault.ErrCapacityExceeded, 0},
		{"reconciled past ceiling", 1200, 1, vault.ErrCapacityExceeded, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.CheckDeposit(tt.recorded, tt.amount)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			var ce *vault.CapacityExceededError
			if errors.As(err, &ce) && ce.Remaining != tt.remaining {
				t.Errorf("remaining: got %d, want %d", ce.Remaining, tt.remaining)
			}
		})
	}
}

func TestCheckWithdrawal(t *testing.T) {
	g := newGuard(t)

	tests := []struct {
		name    string
		balance types.Amount
		amount  types.Amount
		want    error
	}{
		{"fits", 100, 100, nil},
		{"zero", 100, 0, vault.ErrZeroAmount},
		{"limit checked before balance", 50, 101, vault.ErrLimitExceeded},
		{"over balance", 50, 51, vault.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.CheckWithdrawal(tt.balance, tt.amount); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}
