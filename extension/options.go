package extension

import (
	"time"

	"github.com/xraph/vault"
	"github.com/xraph/vault/plugin"
	"github.com/xraph/vault/store"
	"github.com/xraph/vault/transfer"
	"github.com/xraph/vault/types"
)

// Option configures the Vault Forge extension.
type Option func(*Extension)

// WithStore sets the store for the vault engine. It takes precedence over
// the configured driver.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGateway sets the outbound transfer path. It takes precedence over
// the configured transfer policy.
func WithGateway(g transfer.Gateway) Option {
	return func(e *Extension) {
		e.gateway = g
	}
}

// WithVaultOption passes a vault.Option through to the underlying engine.
func WithVaultOption(opt vault.Option) Option {
	return func(e *Extension) {
		e.vaultOpts = append(e.vaultOpts, opt)
	}
}

// WithPlugin registers a vault plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.vaultOpts = append(e.vaultOpts, vault.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithLimits sets the capacity and per-withdrawal limit.
func WithLimits(capacity, withdrawalLimit types.Amount) Option {
	return func(e *Extension) {
		e.config.Capacity = capacity
		e.config.WithdrawalLimit = withdrawalLimit
	}
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDriver selects the store backend and its connection string.
func WithDriver(driver, dsn string) Option {
	return func(e *Extension) {
		e.config.Driver = driver
		e.config.DSN = dsn
	}
}

// WithTransferPolicy sets the policy of the built-in transfer pool.
func WithTransferPolicy(mode string, budget uint64, timeout time.Duration) Option {
	return func(e *Extension) {
		e.config.TransferPolicy = mode
		e.config.TransferBudget = budget
		e.config.TransferTimeout = timeout
	}
}

// WithReconcileInterval runs reconciliation periodically.
func WithReconcileInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.ReconcileInterval = d }
}

// WithMetrics registers Prometheus metrics for ledger activity.
func WithMetrics() Option {
	return func(e *Extension) { e.config.EnableMetrics = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
