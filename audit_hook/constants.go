package audithook

// Action constants for audit events.
const (
	// Ledger actions
	ActionDepositOccurred    = "deposit.occurred"
	ActionWithdrawalOccurred = "withdrawal.occurred"
	ActionFundsReconciled    = "funds.reconciled"

	// Failure actions
	ActionTransferFailed    = "transfer.failed"
	ActionReentrancyBlocked = "reentrancy.blocked"

	// Lifecycle actions
	ActionVaultStarted = "vault.started"
	ActionVaultStopped = "vault.stopped"
)

// Resource constants for audit events.
const (
	ResourceAccount  = "account"
	ResourceVault    = "vault"
	ResourceTransfer = "transfer"
)

// Category constants for audit events.
const (
	CategoryLedger    = "ledger"
	CategoryTransfer  = "transfer"
	CategorySecurity  = "security"
	CategoryLifecycle = "lifecycle"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
