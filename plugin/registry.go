package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/vault/event"
)

// DefaultTimeout bounds a single plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onDepositOccurred    []OnDepositOccurred
	onWithdrawalOccurred []OnWithdrawalOccurred
	onFundsReconciled    []OnFundsReconciled
	onTransferFailed     []OnTransferFailed
	onReentrancyBlocked  []OnReentrancyBlocked
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets how long a single plugin call may run.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnDepositOccurred); ok {
		r.onDepositOccurred = append(r.onDepositOccurred, v)
	}
	if v, ok := p.(OnWithdrawalOccurred); ok {
		r.onWithdrawalOccurred = append(r.onWithdrawalOccurred, v)
	}
	if v, ok := p.(OnFundsReconciled); ok {
		r.onFundsReconciled = append(r.onFundsReconciled, v)
	}
	if v, ok := p.(OnTransferFailed); ok {
		r.onTransferFailed = append(r.onTransferFailed, v)
	}
	if v, ok := p.(OnReentrancyBlocked); ok {
		r.onReentrancyBlocked = append(r.onReentrancyBlocked, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

// implementedInterfaces returns the hook interfaces implemented by the plugin.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	check := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	check(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	check(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	check(reflect.TypeOf((*OnDepositOccurred)(nil)).Elem(), "OnDepositOccurred")
	check(reflect.TypeOf((*OnWithdrawalOccurred)(nil)).Elem(), "OnWithdrawalOccurred")
	check(reflect.TypeOf((*OnFundsReconciled)(nil)).Elem(), "OnFundsReconciled")
	check(reflect.TypeOf((*OnTransferFailed)(nil)).Elem(), "OnTransferFailed")
	check(reflect.TypeOf((*OnReentrancyBlocked)(nil)).Elem(), "OnReentrancyBlocked")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, v interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, v)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitDepositOccurred emits a deposit event.
func (r *Registry) EmitDepositOccurred(ctx context.Context, evt *event.DepositOccurred) {
	r.mu.RLock()
	plugins := r.onDepositOccurred
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnDepositOccurred", func() error {
			return p.OnDepositOccurred(ctx, evt)
		})
	}
}

// EmitWithdrawalOccurred emits a withdrawal event.
func (r *Registry) EmitWithdrawalOccurred(ctx context.Context, evt *event.WithdrawalOccurred) {
	r.mu.RLock()
	plugins := r.onWithdrawalOccurred
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnWithdrawalOccurred", func() error {
			return p.OnWithdrawalOccurred(ctx, evt)
		})
	}
}

// EmitFundsReconciled emits a reconciliation event.
func (r *Registry) EmitFundsReconciled(ctx context.Context, evt *event.FundsReconciled) {
	r.mu.RLock()
	plugins := r.onFundsReconciled
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnFundsReconciled", func() error {
			return p.OnFundsReconciled(ctx, evt)
		})
	}
}

// EmitTransferFailed emits a transfer failure event.
func (r *Registry) EmitTransferFailed(ctx context.Context, evt *event.TransferFailed) {
	r.mu.RLock()
	plugins := r.onTransferFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnTransferFailed", func() error {
			return p.OnTransferFailed(ctx, evt)
		})
	}
}

// EmitReentrancyBlocked emits a rejected reentrant call event.
func (r *Registry) EmitReentrancyBlocked(ctx context.Context, evt *event.ReentrancyBlocked) {
	r.mu.RLock()
	plugins := r.onReentrancyBlocked
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnReentrancyBlocked", func() error {
			return p.OnReentrancyBlocked(ctx, evt)
		})
	}
}

func (r *Registry) dispatch(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
