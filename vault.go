package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/vault/account"
	"github.com/xraph/vault/event"
	"github.com/xraph/vault/id"
	"github.com/xraph/vault/journal"
	"github.com/xraph/vault/plugin"
	"github.com/xraph/vault/store"
	"github.com/xraph/vault/transfer"
	"github.com/xraph/vault/types"
)

// Operation names used in logs and notifications.
const (
	opDeposit   = "deposit"
	opReceive   = "receive"
	opWithdraw  = "withdraw"
	opReconcile = "reconcile"
)

// Vault is the custodial ledger engine.
type Vault struct {
	store   store.Store
	guard   *Guard
	lock    *reentrancyLock
	plugins *plugin.Registry
	logger  *slog.Logger

	gateway   transfer.Gateway
	custodian transfer.Custodian
	receiver  transfer.Receiver

	// pool is the default gateway when none was supplied. It holds value in
	// process only, so Start seeds it from the recorded total.
	pool       *transfer.Pool
	poolPolicy *transfer.Policy

	migrate bool

	// Background workers
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Configuration
	reconcileInterval time.Duration
}

// New creates a Vault over s with the given immutable configuration.
//
// Without WithGateway the vault holds value in an in-process transfer.Pool.
// A gateway that also implements transfer.Custodian or transfer.Receiver is
// used for those roles unless they are set explicitly.
func New(s store.Store, cfg Config, opts ...Option) (*Vault, error) {
	guard, err := NewGuard(cfg)
	if err != nil {
		return nil, err
	}

	v := &Vault{
		store:    s,
		guard:    guard,
		lock:     newReentrancyLock(),
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		stopChan: make(chan struct{}),
		migrate:  true,
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.gateway == nil {
		poolOpts := []transfer.PoolOption{transfer.WithLogger(v.logger)}
		if v.poolPolicy != nil {
			poolOpts = append(poolOpts, transfer.WithPolicy(*v.poolPolicy))
		}
		v.pool = transfer.NewPool(poolOpts...)
		v.gateway = v.pool
	}
	if v.custodian == nil {
		if c, ok := v.gateway.(transfer.Custodian); ok {
			v.custodian = c
		}
	}
	if v.receiver == nil {
		if r, ok := v.gateway.(transfer.Receiver); ok {
			v.receiver = r
		}
	}

	return v, nil
}

// Option configures a Vault instance.
type Option func(*Vault)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) {
		v.logger = logger
		v.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(v *Vault) {
		_ = v.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithGateway sets the outbound transfer path.
func WithGateway(g transfer.Gateway) Option {
	return func(v *Vault) { v.gateway = g }
}

// WithCustodian sets the source of actual held value used by Reconcile.
func WithCustodian(c transfer.Custodian) Option {
	return func(v *Vault) { v.custodian = c }
}

// WithReceiver sets the inbound intake called on every deposit.
func WithReceiver(r transfer.Receiver) Option {
	return func(v *Vault) { v.receiver = r }
}

// WithPoolPolicy sets the delivery policy of the default transfer pool.
// It has no effect together with WithGateway.
func WithPoolPolicy(p transfer.Policy) Option {
	return func(v *Vault) { v.poolPolicy = &p }
}

// WithMigrate controls whether Start migrates the store. Default true.
func WithMigrate(enabled bool) Option {
	return func(v *Vault) { v.migrate = enabled }
}

// WithNotifyTimeout bounds each observer call.
func WithNotifyTimeout(d time.Duration) Option {
	return func(v *Vault) { v.plugins.WithTimeout(d) }
}

// WithReconcileInterval runs Reconcile periodically after Start.
// Zero disables the worker.
func WithReconcileInterval(d time.Duration) Option {
	return func(v *Vault) { v.reconcileInterval = d }
}

// Start migrates the store, seeds the default transfer pool, initializes
// plugins and starts background workers.
func (v *Vault) Start(ctx context.Context) error {
	if v.migrate {
		if err := v.store.Migrate(ctx); err != nil {
			return err
		}
	}

	if err := v.seedPool(ctx); err != nil {
		return err
	}

	v.plugins.EmitInit(ctx, v)

	if v.reconcileInterval > 0 {
		v.wg.Add(1)
		go v.reconcileWorker(ctx)
	}

	cfg := v.guard.Config()
	v.logger.Info("vault started",
		"capacity", cfg.Capacity,
		"withdrawal_limit", cfg.WithdrawalLimit,
		"reconcile_interval", v.reconcileInterval,
	)

	return nil
}

// Stop shuts down background workers, notifies plugins and closes the store.
func (v *Vault) Stop() error {
	v.stopOnce.Do(func() { close(v.stopChan) })
	v.wg.Wait()

	ctx := context.Background()
	v.plugins.EmitShutdown(ctx)

	return v.store.Close()
}

// seedPool tops the default pool up to the recorded total, so value
// recorded by a durable store before a restart can be withdrawn again.
func (v *Vault) seedPool(ctx context.Context) error {
	if v.pool == nil {
		return nil
	}

	totals, err := v.store.GetTotals(ctx)
	if err != nil {
		return err
	}
	held, err := v.pool.Held(ctx)
	if err != nil {
		return err
	}
	if held >= totals.Recorded {
		return nil
	}

	if err := v.pool.Inject(totals.Recorded - held); err != nil {
		return fmt.Errorf("vault: seed transfer pool: %w", err)
	}
	v.logger.Info("transfer pool seeded from store",
		"recorded", totals.Recorded,
		"previously_held", held,
	)
	return nil
}

func (v *Vault) reconcileWorker(ctx context.Context) {
	defer v.wg.Done()

	ticker := time.NewTicker(v.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-v.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := v.Reconcile(ctx); err != nil {
				v.logger.Error("background reconcile failed", "error", err)
			}
		}
	}
}

// ──────────────────────────────────────────────────
// Request handlers
// ──────────────────────────────────────────────────

// Deposit credits amount to caller.
func (v *Vault) Deposit(ctx context.Context, caller id.AccountID, amount types.Amount) error {
	return v.deposit(ctx, opDeposit, caller, amount)
}

// Receive is the default entry point for a bare value transfer. It behaves
// exactly like Deposit and takes the same lock.
func (v *Vault) Receive(ctx context.Context, caller id.AccountID, amount types.Amount) error {
	return v.deposit(ctx, opReceive, caller, amount)
}

func (v *Vault) deposit(ctx context.Context, op string, caller id.AccountID, amount types.Amount) error {
	if caller.IsNil() {
		return ErrInvalidAccount
	}

	return v.exec(ctx, op, true, caller, amount, func(ctx context.Context, f *frame) error {
		totals, err := f.tx.GetTotals(ctx)
		if err != nil {
			return err
		}
		if err := v.guard.CheckDeposit(totals.Recorded, amount); err != nil {
			return err
		}

		acct, err := f.tx.Credit(ctx, caller, amount)
		if err != nil {
			return err
		}

		entry, err := v.record(ctx, f.tx, journal.KindDeposit, caller, amount, acct.Balance)
		if err != nil {
			return err
		}

		if v.receiver != nil {
			err := v.lock.interact(func() error {
				return v.receiver.Accept(ctx, caller, amount)
			})
			if err != nil {
				return fmt.Errorf("vault: accept deposit: %w", err)
			}
		}

		evt := &event.DepositOccurred{
			ID:         id.NewEventID(),
			Account:    caller,
			Amount:     amount,
			NewBalance: acct.Balance,
			EntryID:    entry.ID,
			At:         entry.CreatedAt,
		}
		f.after(func(ctx context.Context) {
			v.logger.Debug("deposit committed",
				"account", caller.String(),
				"amount", amount,
				"balance", evt.NewBalance,
			)
			v.plugins.EmitDepositOccurred(ctx, evt)
		})
		return nil
	})
}

// Withdraw debits amount from caller and transfers it out. The debit is
// applied before the transfer; if the transfer fails every effect of the
// withdrawal is discarded and a *TransferFailedError is returned.
func (v *Vault) Withdraw(ctx context.Context, caller id.AccountID, amount types.Amount) error {
	if caller.IsNil() {
		return ErrInvalidAccount
	}

	err := v.exec(ctx, opWithdraw, true, caller, amount, func(ctx context.Context, f *frame) error {
		current, err := f.tx.GetAccount(ctx, caller)
		if err != nil {
			return err
		}
		if err := v.guard.CheckWithdrawal(current.Balance, amount); err != nil {
			return err
		}

		acct, err := f.tx.Debit(ctx, caller, amount)
		if err != nil {
			return err
		}

		entry, err := v.record(ctx, f.tx, journal.KindWithdrawal, caller, amount, acct.Balance)
		if err != nil {
			return err
		}

		err = v.lock.interact(func() error {
			return v.gateway.Send(ctx, caller, amount)
		})
		if err != nil {
			return &TransferFailedError{To: caller, Amount: amount, Err: err}
		}

		evt := &event.WithdrawalOccurred{
			ID:         id.NewEventID(),
			Account:    caller,
			Amount:     amount,
			NewBalance: acct.Balance,
			EntryID:    entry.ID,
			At:         entry.CreatedAt,
		}
		f.after(func(ctx context.Context) {
			v.logger.Debug("withdrawal committed",
				"account", caller.String(),
				"amount", amount,
				"balance", evt.NewBalance,
			)
			v.plugins.EmitWithdrawalOccurred(ctx, evt)
		})
		return nil
	})

	var tfe *TransferFailedError
	if errors.As(err, &tfe) {
		v.logger.Warn("withdrawal rolled back",
			"account", caller.String(),
			"amount", amount,
			"error", tfe.Err,
		)
		v.plugins.EmitTransferFailed(ctx, &event.TransferFailed{
			ID:      id.NewEventID(),
			Account: caller,
			Amount:  amount,
			Reason:  reason(tfe.Err),
			At:      time.Now().UTC(),
		})
	}

	return err
}

// Reconcile raises the recorded total to the custodian's held value when the
// latter is higher. It never lowers the total and is a no-op without a
// custodian. Called from inside a request it joins that request's
// transaction.
func (v *Vault) Reconcile(ctx context.Context) error {
	return v.exec(ctx, opReconcile, false, id.Nil, 0, func(ctx context.Context, f *frame) error {
		if v.custodian == nil {
			return nil
		}

		held, err := v.custodian.Held(ctx)
		if err != nil {
			return fmt.Errorf("vault: read held value: %w", err)
		}
		if held > types.MaxStorable {
			held = types.MaxStorable
		}

		totals, err := f.tx.GetTotals(ctx)
		if err != nil {
			return err
		}
		if held <= totals.Recorded {
			return nil
		}

		previous := totals.Recorded
		if _, err := f.tx.RaiseTotal(ctx, held); err != nil {
			return err
		}

		entry := &journal.Entry{
			ID:         id.NewEntryID(),
			Kind:       journal.KindReconcile,
			Amount:     held - previous,
			TotalAfter: held,
			CreatedAt:  time.Now().UTC(),
		}
		if err := f.tx.AppendEntry(ctx, entry); err != nil {
			return err
		}

		evt := &event.FundsReconciled{
			ID:                 id.NewEventID(),
			Actual:             held,
			PreviouslyRecorded: previous,
			At:                 entry.CreatedAt,
		}
		f.after(func(ctx context.Context) {
			v.logger.Info("funds reconciled",
				"actual", held,
				"previously_recorded", previous,
			)
			v.plugins.EmitFundsReconciled(ctx, evt)
		})
		return nil
	})
}

// exec runs fn inside the vault's transaction discipline.
//
// At top level it takes the lock (engaging it when guarded), opens a store
// transaction and delivers queued notifications after commit. Inside an
// existing frame, guarded operations are rejected with ErrReentrancy and
// unguarded ones join the open transaction. Any other entry made while the
// lock holder is inside a transfer is rejected with ErrReentrancy.
func (v *Vault) exec(
	ctx context.Context,
	op string,
	guarded bool,
	caller id.AccountID,
	amount types.Amount,
	fn func(ctx context.Context, f *frame) error,
) error {
	if outer := v.frameFrom(ctx); outer != nil {
		if guarded {
			return v.reject(ctx, op, caller, amount)
		}
		return fn(ctx, outer)
	}

	// The holder cannot release the lock until its transfer returns, so
	// waiting here would deadlock a callback that lost its context.
	if v.lock.inInteraction() {
		return v.reject(ctx, op, caller, amount)
	}

	release, err := v.lock.acquire(ctx, guarded)
	if err != nil {
		return err
	}
	defer release()

	f := &frame{op: op}
	err = v.store.RunInTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		f.tx = tx
		return fn(context.WithValue(txCtx, frameKey{v}, f), f)
	})
	if err != nil {
		return err
	}

	for _, emit := range f.pending {
		emit(ctx)
	}
	return nil
}

// reject reports a reentrant entry and returns ErrReentrancy.
func (v *Vault) reject(ctx context.Context, op string, caller id.AccountID, amount types.Amount) error {
	v.logger.Warn("reentrant call rejected",
		"operation", op,
		"account", caller.String(),
	)
	v.plugins.EmitReentrancyBlocked(v.detach(ctx), &event.ReentrancyBlocked{
		ID:        id.NewEventID(),
		Operation: op,
		Account:   caller,
		Amount:    amount,
		At:        time.Now().UTC(),
	})
	return ErrReentrancy
}

// record appends a journal entry for an account mutation.
func (v *Vault) record(
	ctx context.Context,
	tx store.Tx,
	kind journal.Kind,
	acct id.AccountID,
	amount, balance types.Amount,
) (*journal.Entry, error) {
	totals, err := tx.GetTotals(ctx)
	if err != nil {
		return nil, err
	}

	entry := &journal.Entry{
		ID:           id.NewEntryID(),
		Kind:         kind,
		AccountID:    acct,
		Amount:       amount,
		BalanceAfter: balance,
		TotalAfter:   totals.Recorded,
		CreatedAt:    time.Now().UTC(),
	}
	if err := tx.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func reason(err error) string {
	if err == nil {
		return "transfer refused"
	}
	return err.Error()
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// reader returns the open transaction when ctx belongs to an in-flight
// request, so reentrant readers see that request's effects.
func (v *Vault) reader(ctx context.Context) store.Reader {
	if f := v.frameFrom(ctx); f != nil && f.tx != nil {
		return f.tx
	}
	return v.store
}

// Balance returns the balance of acct.
func (v *Vault) Balance(ctx context.Context, acct id.AccountID) (types.Amount, error) {
	if acct.IsNil() {
		return types.Zero, ErrInvalidAccount
	}
	a, err := v.reader(ctx).GetAccount(ctx, acct)
	if err != nil {
		return types.Zero, err
	}
	return a.Balance, nil
}

// Stats returns the balance and counters of acct.
func (v *Vault) Stats(ctx context.Context, acct id.AccountID) (account.Stats, error) {
	if acct.IsNil() {
		return account.Stats{}, ErrInvalidAccount
	}
	a, err := v.reader(ctx).GetAccount(ctx, acct)
	if err != nil {
		return account.Stats{}, err
	}
	return a.Stats(), nil
}

// Totals returns the global aggregates.
func (v *Vault) Totals(ctx context.Context) (account.Totals, error) {
	t, err := v.reader(ctx).GetTotals(ctx)
	if err != nil {
		return account.Totals{}, err
	}
	return *t, nil
}

// Entries lists committed journal entries in sequence order.
func (v *Vault) Entries(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	return v.store.ListEntries(ctx, opts)
}

// Config returns the immutable configuration.
func (v *Vault) Config() Config { return v.guard.Config() }

// LockState reports whether a guarded operation is in flight.
func (v *Vault) LockState() LockState { return v.lock.current() }

// Gateway returns the outbound transfer path.
func (v *Vault) Gateway() transfer.Gateway { return v.gateway }

// Custodian returns the held-value source, or nil.
func (v *Vault) Custodian() transfer.Custodian { return v.custodian }

// Plugins returns the plugin registry.
func (v *Vault) Plugins() *plugin.Registry { return v.plugins }

// Store returns the underlying store.
func (v *Vault) Store() store.Store { return v.store }
