// Package extension provides the Forge extension adapter for Vault.
//
// It implements the forge.Extension interface to integrate Vault
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.vault" or "vault" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/vault"
	"github.com/xraph/vault/observability"
	"github.com/xraph/vault/store"
	"github.com/xraph/vault/store/memory"
	"github.com/xraph/vault/store/mongo"
	"github.com/xraph/vault/store/postgres"
	"github.com/xraph/vault/store/sqlite"
	"github.com/xraph/vault/transfer"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "vault"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Single-asset custodial ledger with reentrancy-safe withdrawals"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// openTimeout bounds connecting to a configured store backend.
const openTimeout = 10 * time.Second

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Vault as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config    Config
	engine    *vault.Vault
	store     store.Store
	gateway   transfer.Gateway
	vaultOpts []vault.Option
}

// New creates a new Vault Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Vault instance.
// This is nil until Register is called.
func (e *Extension) Engine() *vault.Vault { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the vault engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
		defer cancel()

		s, err := openStore(ctx, e.config)
		if err != nil {
			return err
		}
		e.store = s
	}

	opts, err := e.buildVaultOpts()
	if err != nil {
		return err
	}

	eng, err := vault.New(e.store, vault.Config{
		Capacity:        e.config.Capacity,
		WithdrawalLimit: e.config.WithdrawalLimit,
	}, opts...)
	if err != nil {
		return fmt.Errorf("vault: extension: %w", err)
	}
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*vault.Vault, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("vault: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("vault: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildVaultOpts constructs vault.Option values from the resolved config.
func (e *Extension) buildVaultOpts() ([]vault.Option, error) {
	opts := make([]vault.Option, 0, len(e.vaultOpts)+5)
	opts = append(opts, vault.WithMigrate(!e.config.DisableMigrate))

	// Without an explicit gateway the vault owns its transfer pool and
	// seeds it from the store on Start.
	if e.gateway != nil {
		opts = append(opts, vault.WithGateway(e.gateway))
	} else {
		policy, err := transfer.ParsePolicy(e.config.TransferPolicy, e.config.TransferBudget, e.config.TransferTimeout)
		if err != nil {
			return nil, fmt.Errorf("vault: extension: %w", err)
		}
		opts = append(opts, vault.WithPoolPolicy(policy))
	}

	if e.config.NotifyTimeout > 0 {
		opts = append(opts, vault.WithNotifyTimeout(e.config.NotifyTimeout))
	}
	if e.config.ReconcileInterval > 0 {
		opts = append(opts, vault.WithReconcileInterval(e.config.ReconcileInterval))
	}
	if e.config.EnableMetrics {
		factory := observability.NewPrometheusFactory(nil)
		opts = append(opts, vault.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	// Append any pass-through vault options.
	opts = append(opts, e.vaultOpts...)

	return opts, nil
}

// openStore connects the store backend named by cfg.Driver.
func openStore(ctx context.Context, cfg Config) (store.Store, error) {
	if cfg.Driver != DriverMemory && cfg.Driver != "" && cfg.DSN == "" {
		return nil, fmt.Errorf("vault: %s driver requires dsn", cfg.Driver)
	}

	switch cfg.Driver {
	case DriverMemory, "":
		return memory.New(), nil
	case DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverMongo:
		s, err := mongo.Open(ctx, cfg.DSN, cfg.Database)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("vault: unknown store driver %q", cfg.Driver)
	}
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("vault: configuration is required but not found in config files; " +
				"ensure 'extensions.vault' or 'vault' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("vault: configuration loaded",
		forge.F("capacity", e.config.Capacity),
		forge.F("withdrawal_limit", e.config.WithdrawalLimit),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("driver", e.config.Driver),
		forge.F("transfer_policy", e.config.TransferPolicy),
		forge.F("reconcile_interval", e.config.ReconcileInterval),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.vault" first (namespaced pattern).
	if cm.IsSet("extensions.vault") {
		if err := cm.Bind("extensions.vault", &cfg); err == nil {
			e.Logger().Debug("vault: loaded config from file",
				forge.F("key", "extensions.vault"),
			)
			return cfg, true
		}
		e.Logger().Warn("vault: failed to bind extensions.vault config",
			forge.F("error", "bind failed"),
		)
	}

	// Try top-level "vault" key.
	if cm.IsSet("vault") {
		if err := cm.Bind("vault", &cfg); err == nil {
			e.Logger().Debug("vault: loaded config from file",
				forge.F("key", "vault"),
			)
			return cfg, true
		}
		e.Logger().Warn("vault: failed to bind vault config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.Database == "" {
		cfg.Database = defaults.Database
	}
	if cfg.TransferPolicy == "" {
		cfg.TransferPolicy = defaults.TransferPolicy
	}
	if cfg.NotifyTimeout == 0 {
		cfg.NotifyTimeout = defaults.NotifyTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.EnableMetrics {
		yamlConfig.EnableMetrics = true
	}

	// Amounts: YAML takes precedence.
	if yamlConfig.Capacity == 0 {
		yamlConfig.Capacity = programmaticConfig.Capacity
	}
	if yamlConfig.WithdrawalLimit == 0 {
		yamlConfig.WithdrawalLimit = programmaticConfig.WithdrawalLimit
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Driver == "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}
	if yamlConfig.DSN == "" {
		yamlConfig.DSN = programmaticConfig.DSN
	}
	if yamlConfig.Database == "" {
		yamlConfig.Database = programmaticConfig.Database
	}
	if yamlConfig.TransferPolicy == "" {
		yamlConfig.TransferPolicy = programmaticConfig.TransferPolicy
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.TransferBudget == 0 {
		yamlConfig.TransferBudget = programmaticConfig.TransferBudget
	}
	if yamlConfig.TransferTimeout == 0 {
		yamlConfig.TransferTimeout = programmaticConfig.TransferTimeout
	}
	if yamlConfig.NotifyTimeout == 0 {
		yamlConfig.NotifyTimeout = programmaticConfig.NotifyTimeout
	}
	if yamlConfig.ReconcileInterval == 0 {
		yamlConfig.ReconcileInterval = programmaticConfig.ReconcileInterval
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
