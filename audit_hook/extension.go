// Package audithook bridges Vault events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/vault/event"
	"github.com/xraph/vault/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnInit               = (*Extension)(nil)
	_ plugin.OnShutdown           = (*Extension)(nil)
	_ plugin.OnDepositOccurred    = (*Extension)(nil)
	_ plugin.OnWithdrawalOccurred = (*Extension)(nil)
	_ plugin.OnFundsReconciled    = (*Extension)(nil)
	_ plugin.OnTransferFailed     = (*Extension)(nil)
	_ plugin.OnReentrancyBlocked  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audit record.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Vault events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit implements plugin.OnInit.
func (e *Extension) OnInit(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionVaultStarted, SeverityInfo, OutcomeSuccess,
		ResourceVault, "", CategoryLifecycle, nil,
	)
}

// OnShutdown implements plugin.OnShutdown.
func (e *Extension) OnShutdown(ctx context.Context) error {
	return e.record(ctx, ActionVaultStopped, SeverityInfo, OutcomeSuccess,
		ResourceVault, "", CategoryLifecycle, nil,
	)
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnDepositOccurred implements plugin.OnDepositOccurred.
func (e *Extension) OnDepositOccurred(ctx context.Context, evt *event.DepositOccurred) error {
	return e.record(ctx, ActionDepositOccurred, SeverityInfo, OutcomeSuccess,
		ResourceAccount, evt.Account.String(), CategoryLedger, nil,
		"amount", evt.Amount.Uint64(),
		"new_balance", evt.NewBalance.Uint64(),
		"entry_id", evt.EntryID.String(),
	)
}

// OnWithdrawalOccurred implements plugin.OnWithdrawalOccurred.
func (e *Extension) OnWithdrawalOccurred(ctx context.Context, evt *event.WithdrawalOccurred) error {
	return e.record(ctx, ActionWithdrawalOccurred, SeverityInfo, OutcomeSuccess,
		ResourceAccount, evt.Account.String(), CategoryLedger, nil,
		"amount", evt.Amount.Uint64(),
		"new_balance", evt.NewBalance.Uint64(),
		"entry_id", evt.EntryID.String(),
	)
}

// OnFundsReconciled implements plugin.OnFundsReconciled.
func (e *Extension) OnFundsReconciled(ctx context.Context, evt *event.FundsReconciled) error {
	return e.record(ctx, ActionFundsReconciled, SeverityWarning, OutcomeSuccess,
		ResourceVault, "", CategoryLedger, nil,
		"actual", evt.Actual.Uint64(),
		"previously_recorded", evt.PreviouslyRecorded.Uint64(),
		"surplus", evt.Surplus().Uint64(),
	)
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnTransferFailed implements plugin.OnTransferFailed.
func (e *Extension) OnTransferFailed(ctx context.Context, evt *event.TransferFailed) error {
	return e.record(ctx, ActionTransferFailed, SeverityError, OutcomeFailure,
		ResourceTransfer, evt.Account.String(), CategoryTransfer, errors.New(evt.Reason),
		"amount", evt.Amount.Uint64(),
	)
}

// OnReentrancyBlocked implements plugin.OnReentrancyBlocked.
func (e *Extension) OnReentrancyBlocked(ctx context.Context, evt *event.ReentrancyBlocked) error {
	return e.record(ctx, ActionReentrancyBlocked, SeverityCritical, OutcomeFailure,
		ResourceAccount, evt.Account.String(), CategorySecurity, nil,
		"operation", evt.Operation,
		"amount", evt.Amount.Uint64(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
