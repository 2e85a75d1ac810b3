// Package memory provides an in-process Store. Transactions stage their
// writes in an overlay that is applied to the committed state only when
// the transaction function succeeds.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/vault"
	"github.com/xraph/vault/account"
	"github.com/xraph/vault/id"
	"github.com/xraph/vault/journal"
	"github.com/xraph/vault/store"
	"github.com/xraph/vault/types"
)

// Compile-time interface checks.
var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)

type Store struct {
	mu sync.RWMutex

	// Account storage
	accounts map[string]*account.Account
	totals   account.Totals

	// Journal storage
	entries []*journal.Entry
	seq     uint64

	// txMu serializes transactions.
	txMu   sync.Mutex
	closed bool
}

func New() *Store {
	return &Store{
		accounts: make(map[string]*account.Account),
	}
}

// Account Store implementation
func (s *Store) GetAccount(_ context.Context, accountID id.AccountID) (*account.Account, error) {
	if accountID.IsNil() {
		return nil, vault.ErrInvalidAccount
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, vault.ErrStoreClosed
	}
	if a, ok := s.accounts[accountID.String()]; ok {
		cp := *a
		return &cp, nil
	}
	return account.Empty(accountID), nil
}

func (s *Store) GetTotals(_ context.Context) (*account.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, vault.ErrStoreClosed
	}
	t := s.totals
	return &t, nil
}

// Journal Store implementation
func (s *Store) ListEntries(_ context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, vault.ErrStoreClosed
	}

	result := make([]*journal.Entry, 0)
	for _, e := range s.entries {
		if opts.Matches(e) {
			cp := *e
			result = append(result, &cp)
		}
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// RunInTx runs fn against a staged overlay and applies it on success.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	closed := s.closed
	base := s.totals
	s.mu.RUnlock()
	if closed {
		return vault.ErrStoreClosed
	}

	t := &tx{
		s:        s,
		accounts: make(map[string]*account.Account),
		totals:   base,
	}

	if err := fn(ctx, t); err != nil {
		t.finish()
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return vault.ErrTxDone
	}
	t.done = true

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, a := range t.accounts {
		s.accounts[k] = a
	}
	s.totals = t.totals
	s.entries = append(s.entries, t.entries...)
	if t.seqInit {
		s.seq = t.seq
	}
	return nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return vault.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// Transaction overlay
// ──────────────────────────────────────────────────

type tx struct {
	s *Store

	// A recipient callback may still hold the tx after a deadline.
	mu   sync.Mutex
	done bool

	accounts map[string]*account.Account
	totals   account.Totals
	entries  []*journal.Entry
	seq      uint64
	seqInit  bool
}

func (t *tx) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
}

// load returns the staged copy of the account, reading through to the
// committed state on first access. Caller holds t.mu.
func (t *tx) load(accountID id.AccountID) *account.Account {
	key := accountID.String()
	if a, ok := t.accounts[key]; ok {
		return a
	}

	t.s.mu.RLock()
	committed, ok := t.s.accounts[key]
	t.s.mu.RUnlock()

	var a *account.Account
	if ok {
		cp := *committed
		a = &cp
	} else {
		a = account.Empty(accountID)
		a.Entity = types.NewEntity()
	}
	t.accounts[key] = a
	return a
}

func (t *tx) GetAccount(_ context.Context, accountID id.AccountID) (*account.Account, error) {
	if accountID.IsNil() {
		return nil, vault.ErrInvalidAccount
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil, vault.ErrTxDone
	}

	key := accountID.String()
	if a, ok := t.accounts[key]; ok {
		cp := *a
		return &cp, nil
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if a, ok := t.s.accounts[key]; ok {
		cp := *a
		return &cp, nil
	}
	return account.Empty(accountID), nil
}

func (t *tx) GetTotals(_ context.Context) (*account.Totals, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil, vault.ErrTxDone
	}
	tot := t.totals
	return &tot, nil
}

func (t *tx) Credit(_ context.Context, accountID id.AccountID, amount types.Amount) (*account.Account, error) {
	if accountID.IsNil() {
		return nil, vault.ErrInvalidAccount
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil, vault.ErrTxDone
	}

	a := t.load(accountID)
	balance, err := a.Balance.Add(amount)
	if err != nil {
		return nil, err
	}
	recorded, err := t.totals.Recorded.Add(amount)
	if err != nil {
		return nil, err
	}

	a.Balance = balance
	a.DepositCount++
	a.Touch()
	t.totals.Recorded = recorded
	t.totals.Deposits++

	cp := *a
	return &cp, nil
}

func (t *tx) Debit(_ context.Context, accountID id.AccountID, amount types.Amount) (*account.Account, error) {
	if accountID.IsNil() {
		return nil, vault.ErrInvalidAccount
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil, vault.ErrTxDone
	}

	a := t.load(accountID)
	balance, err := a.Balance.Sub(amount)
	if err != nil {
		return nil, err
	}
	recorded, err := t.totals.Recorded.Sub(amount)
	if err != nil {
		return nil, vault.ErrCorruptData
	}

	a.Balance = balance
	a.WithdrawalCount++
	a.Touch()
	t.totals.Recorded = recorded
	t.totals.Withdrawals++

	cp := *a
	return &cp, nil
}

func (t *tx) RaiseTotal(_ context.Context, to types.Amount) (*account.Totals, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil, vault.ErrTxDone
	}

	if to > t.totals.Recorded {
		t.totals.Recorded = to
	}
	t.totals.Reconciliations++

	tot := t.totals
	return &tot, nil
}

func (t *tx) AppendEntry(_ context.Context, e *journal.Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return vault.ErrTxDone
	}

	if !t.seqInit {
		t.s.mu.RLock()
		t.seq = t.s.seq
		t.s.mu.RUnlock()
		t.seqInit = true
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	t.seq++
	e.Seq = t.seq
	cp := *e
	t.entries = append(t.entries, &cp)
	return nil
}
