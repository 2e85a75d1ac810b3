// Package plugin provides an extensible plugin system for Vault.
// Plugins can hook into lifecycle events to observe ledger activity.
package plugin

import (
	"context"

	"github.com/xraph/vault/event"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the vault starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, v interface{}) error
}

// OnShutdown is called when the vault stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnDepositOccurred is called after a deposit commits.
type OnDepositOccurred interface {
	Plugin
	OnDepositOccurred(ctx context.Context, evt *event.DepositOccurred) error
}

// OnWithdrawalOccurred is called after a withdrawal commits.
type OnWithdrawalOccurred interface {
	Plugin
	OnWithdrawalOccurred(ctx context.Context, evt *event.WithdrawalOccurred) error
}

// OnFundsReconciled is called after reconciliation absorbs surplus.
type OnFundsReconciled interface {
	Plugin
	OnFundsReconciled(ctx context.Context, evt *event.FundsReconciled) error
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnTransferFailed is called after a withdrawal is rolled back because its
// transfer failed.
type OnTransferFailed interface {
	Plugin
	OnTransferFailed(ctx context.Context, evt *event.TransferFailed) error
}

// OnReentrancyBlocked is called when a reentrant call is rejected.
type OnReentrancyBlocked interface {
	Plugin
	OnReentrancyBlocked(ctx context.Context, evt *event.ReentrancyBlocked) error
}
