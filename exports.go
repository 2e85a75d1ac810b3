package vault

import (
	"github.com/xraph/vault/account"
	"github.com/xraph/vault/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Stats is re-exported from account package.
type Stats = account.Stats

// Totals is re-exported from account package.
type Totals = account.Totals
