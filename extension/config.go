package extension

import (
	"time"

	"github.com/xraph/vault/types"
)

// Store drivers understood by the extension.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds the Vault extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.vault" or "vault" keys).
type Config struct {
	// Capacity is the ceiling on the recorded total.
	Capacity types.Amount `json:"capacity" mapstructure:"capacity" yaml:"capacity"`

	// WithdrawalLimit bounds a single withdrawal. Must be below Capacity.
	WithdrawalLimit types.Amount `json:"withdrawal_limit" mapstructure:"withdrawal_limit" yaml:"withdrawal_limit"`

	// DisableMigrate prevents auto-migration on start. Plugins and the
	// reconcile worker still start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Driver selects the store backend when no store is set
	// programmatically: memory, sqlite, postgres or mongo (default: memory).
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DSN is the file path (sqlite), connection string (postgres) or URI
	// (mongo) for the selected driver.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// Database is the MongoDB database name (default: "vault").
	Database string `json:"database" mapstructure:"database" yaml:"database"`

	// TransferPolicy is the resource policy of the built-in transfer pool:
	// "unrestricted" or "capped" (default: capped).
	TransferPolicy string `json:"transfer_policy" mapstructure:"transfer_policy" yaml:"transfer_policy"`

	// TransferBudget is the work budget of a capped transfer.
	TransferBudget uint64 `json:"transfer_budget" mapstructure:"transfer_budget" yaml:"transfer_budget"`

	// TransferTimeout bounds a capped transfer.
	TransferTimeout time.Duration `json:"transfer_timeout" mapstructure:"transfer_timeout" yaml:"transfer_timeout"`

	// NotifyTimeout bounds each plugin hook call (default: 5s).
	NotifyTimeout time.Duration `json:"notify_timeout" mapstructure:"notify_timeout" yaml:"notify_timeout"`

	// ReconcileInterval runs reconciliation periodically. Zero disables it.
	ReconcileInterval time.Duration `json:"reconcile_interval" mapstructure:"reconcile_interval" yaml:"reconcile_interval"`

	// EnableMetrics registers Prometheus metrics for ledger activity.
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics" yaml:"enable_metrics"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults. Capacity and
// WithdrawalLimit have no default and must be configured.
func DefaultConfig() Config {
	return Config{
		Driver:         DriverMemory,
		Database:       "vault",
		TransferPolicy: "capped",
		NotifyTimeout:  5 * time.Second,
	}
}
