// Package observability provides a metrics extension for Vault that records
// ledger event counts and volumes via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/vault/event"
	"github.com/xraph/vault/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnDepositOccurred    = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawalOccurred = (*MetricsExtension)(nil)
	_ plugin.OnFundsReconciled    = (*MetricsExtension)(nil)
	_ plugin.OnTransferFailed     = (*MetricsExtension)(nil)
	_ plugin.OnReentrancyBlocked  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// Metric names. Dots are the factory-neutral separator; PrometheusFactory
// rewrites them to underscores.
const (
	MetricDeposits          = "vault.deposits"
	MetricDepositVolume     = "vault.deposit.volume"
	MetricDepositAmount     = "vault.deposit.amount"
	MetricWithdrawals       = "vault.withdrawals"
	MetricWithdrawalVolume  = "vault.withdrawal.volume"
	MetricWithdrawalAmount  = "vault.withdrawal.amount"
	MetricReconciliations   = "vault.reconciliations"
	MetricReconciledSurplus = "vault.reconciled.surplus"
	MetricTransferFailures  = "vault.transfer.failures"
	MetricReentrancyBlocked = "vault.reentrancy.blocked"
)

// MetricsExtension records ledger activity metrics.
// Register it as a Vault plugin to track deposits, withdrawals and failures.
type MetricsExtension struct {
	factory MetricFactory

	// Deposit metrics
	Deposits      Counter
	DepositVolume Counter
	DepositAmount Histogram

	// Withdrawal metrics
	Withdrawals      Counter
	WithdrawalVolume Counter
	WithdrawalAmount Histogram

	// Reconciliation metrics
	Reconciliations   Counter
	ReconciledSurplus Counter

	// Failure metrics
	TransferFailures  Counter
	ReentrancyBlocked Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		Deposits:      factory.Counter(MetricDeposits),
		DepositVolume: factory.Counter(MetricDepositVolume),
		DepositAmount: factory.Histogram(MetricDepositAmount),

		Withdrawals:      factory.Counter(MetricWithdrawals),
		WithdrawalVolume: factory.Counter(MetricWithdrawalVolume),
		WithdrawalAmount: factory.Histogram(MetricWithdrawalAmount),

		Reconciliations:   factory.Counter(MetricReconciliations),
		ReconciledSurplus: factory.Counter(MetricReconciledSurplus),

		TransferFailures:  factory.Counter(MetricTransferFailures),
		ReentrancyBlocked: factory.Counter(MetricReentrancyBlocked),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnDepositOccurred implements plugin.OnDepositOccurred.
func (m *MetricsExtension) OnDepositOccurred(_ context.Context, evt *event.DepositOccurred) error {
	amount := float64(evt.Amount.Uint64())
	m.Deposits.Inc()
	m.DepositVolume.Add(amount)
	m.DepositAmount.Observe(amount)
	return nil
}

// OnWithdrawalOccurred implements plugin.OnWithdrawalOccurred.
func (m *MetricsExtension) OnWithdrawalOccurred(_ context.Context, evt *event.WithdrawalOccurred) error {
	amount := float64(evt.Amount.Uint64())
	m.Withdrawals.Inc()
	m.WithdrawalVolume.Add(amount)
	m.WithdrawalAmount.Observe(amount)
	return nil
}

// OnFundsReconciled implements plugin.OnFundsReconciled.
func (m *MetricsExtension) OnFundsReconciled(_ context.Context, evt *event.FundsReconciled) error {
	m.Reconciliations.Inc()
	m.ReconciledSurplus.Add(float64(evt.Surplus().Uint64()))
	return nil
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnTransferFailed implements plugin.OnTransferFailed.
func (m *MetricsExtension) OnTransferFailed(_ context.Context, _ *event.TransferFailed) error {
	m.TransferFailures.Inc()
	return nil
}

// OnReentrancyBlocked implements plugin.OnReentrancyBlocked.
func (m *MetricsExtension) OnReentrancyBlocked(_ context.Context, _ *event.ReentrancyBlocked) error {
	m.ReentrancyBlocked.Inc()
	return nil
}
