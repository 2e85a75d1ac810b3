package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/vault"
	"github.com/xraph/vault/account"
	"github.com/xraph/vault/id"
	"github.com/xraph/vault/journal"
	vaultstore "github.com/xraph/vault/store"
	"github.com/xraph/vault/types"
)

// compile-time interface checks
var (
	_ vaultstore.Store = (*Store)(nil)
	_ vaultstore.Tx    = (*tx)(nil)
)

// queryer is the subset of *sql.DB and *sql.Tx the queries need.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements store.Store on a *sql.DB.
type Store struct {
	db *sql.DB
	d  Dialect
}

// New creates a Store over db using dialect d.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, d: d}
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the store's dialect.
func (s *Store) Dialect() Dialect { return s.d }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("vault/%s: %s: %w", s.d.Name, op, err)
}

// ==================== Account Store ====================

const selectAccount = `SELECT id, balance, deposit_count, withdrawal_count, created_at, updated_at
FROM vault_accounts WHERE id = ?`

const selectTotals = `SELECT recorded, deposits, withdrawals, reconciliations
FROM vault_totals WHERE id = 1`

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	if accountID.IsNil() {
		return nil, vault.ErrInvalidAccount
	}
	a, err := getAccount(ctx, s.db, s.d.rebind(selectAccount), accountID)
	return a, s.wrap("get account", err)
}

func (s *Store) GetTotals(ctx context.Context) (*account.Totals, error) {
	t, err := getTotals(ctx, s.db, selectTotals)
	return t, s.wrap("get totals", err)
}

func getAccount(ctx context.Context, q queryer, query string, accountID id.AccountID) (*account.Account, error) {
	m := new(accountModel)
	err := q.QueryRowContext(ctx, query, accountID.String()).Scan(
		&m.ID, &m.Balance, &m.DepositCount, &m.WithdrawalCount, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return account.Empty(accountID), nil
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func getTotals(ctx context.Context, q queryer, query string) (*account.Totals, error) {
	m := new(totalsModel)
	err := q.QueryRowContext(ctx, query).Scan(&m.Recorded, &m.Deposits, &m.Withdrawals, &m.Reconciliations)
	if err != nil {
		if isNoRows(err) {
			// Migrate seeds the row; an empty table means nothing was recorded yet.
			return &account.Totals{}, nil
		}
		return nil, err
	}
	return fromTotalsModel(m)
}

// ==================== Journal Store ====================

func (s *Store) ListEntries(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	query := `SELECT seq, id, kind, account_id, amount, balance_after, total_after, created_at
FROM vault_entries WHERE 1 = 1`
	var args []any

	if !opts.AccountID.IsNil() {
		query += ` AND account_id = ?`
		args = append(args, opts.AccountID.String())
	}
	if opts.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(opts.Kind))
	}
	query += ` ORDER BY seq ASC`
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 && s.d.NoLimit != "" {
			query += ` LIMIT ` + s.d.NoLimit
		}
		query += fmt.Sprintf(` OFFSET %d`, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return nil, s.wrap("list entries", err)
	}
	defer rows.Close()

	result := make([]*journal.Entry, 0)
	for rows.Next() {
		m := new(entryModel)
		if err := rows.Scan(&m.Seq, &m.ID, &m.Kind, &m.AccountID, &m.Amount, &m.BalanceAfter, &m.TotalAfter, &m.CreatedAt); err != nil {
			return nil, s.wrap("scan entry", err)
		}
		e, err := fromEntryModel(m)
		if err != nil {
			return nil, s.wrap("decode entry", err)
		}
		result = append(result, e)
	}
	return result, s.wrap("list entries", rows.Err())
}

// ==================== Transactions ====================

// RunInTx runs fn in a database transaction, rolling back on error.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx vaultstore.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap("begin", err)
	}

	t := &tx{s: s, tx: sqlTx}
	if err := fn(ctx, t); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, s.wrap("rollback", rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return s.wrap("commit", err)
	}
	return nil
}

type tx struct {
	s  *Store
	tx *sql.Tx
}

func (t *tx) translate(op string, err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return vault.ErrTxDone
	}
	return t.s.wrap(op, err)
}

func (t *tx) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	if accountID.IsNil() {
		return nil, vault.ErrInvalidAccount
	}
	query := t.s.d.rebind(selectAccount + t.s.d.LockSuffix)
	a, err := getAccount(ctx, t.tx, query, accountID)
	if err != nil {
		return nil, t.translate("get account", err)
	}
	return a, nil
}

func (t *tx) GetTotals(ctx context.Context) (*account.Totals, error) {
	tot, err := getTotals(ctx, t.tx, selectTotals+t.s.d.LockSuffix)
	if err != nil {
		return nil, t.translate("get totals", err)
	}
	return tot, nil
}

func (t *tx) Credit(ctx context.Context, accountID id.AccountID, amount types.Amount) (*account.Account, error) {
	if accountID.IsNil() {
		return nil, vault.ErrInvalidAccount
	}

	now := time.Now().UTC()
	_, err := t.tx.ExecContext(ctx, t.s.d.rebind(`INSERT INTO vault_accounts
    (id, balance, deposit_count, withdrawal_count, created_at, updated_at)
VALUES (?, ?, 1, 0, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    balance = vault_accounts.balance + excluded.balance,
    deposit_count = vault_accounts.deposit_count + 1,
    updated_at = excluded.updated_at`),
		accountID.String(), amount.Int64(), now, now,
	)
	if err != nil {
		return nil, t.translate("credit account", err)
	}

	if err := t.exec(ctx, "credit totals",
		`UPDATE vault_totals SET recorded = recorded + ?, deposits = deposits + 1 WHERE id = 1`,
		amount.Int64(),
	); err != nil {
		return nil, err
	}

	return t.GetAccount(ctx, accountID)
}

func (t *tx) Debit(ctx context.Context, accountID id.AccountID, amount types.Amount) (*account.Account, error) {
	if accountID.IsNil() {
		return nil, vault.ErrInvalidAccount
	}

	res, err := t.tx.ExecContext(ctx, t.s.d.rebind(`UPDATE vault_accounts SET
    balance = balance - ?,
    withdrawal_count = withdrawal_count + 1,
    updated_at = ?
WHERE id = ? AND balance >= ?`),
		amount.Int64(), time.Now().UTC(), accountID.String(), amount.Int64(),
	)
	if err != nil {
		return nil, t.translate("debit account", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, t.s.wrap("debit account", types.ErrUnderflow)
	}

	if err := t.exec(ctx, "debit totals",
		`UPDATE vault_totals SET recorded = recorded - ?, withdrawals = withdrawals + 1 WHERE id = 1 AND recorded >= ?`,
		amount.Int64(), amount.Int64(),
	); err != nil {
		return nil, err
	}

	return t.GetAccount(ctx, accountID)
}

func (t *tx) RaiseTotal(ctx context.Context, to types.Amount) (*account.Totals, error) {
	if err := t.exec(ctx, "raise total",
		`UPDATE vault_totals SET
    recorded = CASE WHEN recorded < ? THEN ? ELSE recorded END,
    reconciliations = reconciliations + 1
WHERE id = 1`,
		to.Int64(), to.Int64(),
	); err != nil {
		return nil, err
	}
	return t.GetTotals(ctx)
}

func (t *tx) AppendEntry(ctx context.Context, e *journal.Entry) error {
	var seq int64
	if err := t.tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM vault_entries`).Scan(&seq); err != nil {
		return t.translate("next entry seq", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.Seq = uint64(seq) //nolint:gosec // seq starts at 1

	m := toEntryModel(e)
	_, err := t.tx.ExecContext(ctx, t.s.d.rebind(`INSERT INTO vault_entries
    (seq, id, kind, account_id, amount, balance_after, total_after, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		m.Seq, m.ID, m.Kind, m.AccountID, m.Amount, m.BalanceAfter, m.TotalAfter, m.CreatedAt,
	)
	if err != nil {
		return t.translate("append entry", err)
	}
	return nil
}

// exec runs a statement that must touch exactly one row.
func (t *tx) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := t.tx.ExecContext(ctx, t.s.d.rebind(query), args...)
	if err != nil {
		return t.translate(op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return t.s.wrap(op, vault.ErrCorruptData)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
