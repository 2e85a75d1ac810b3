package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xraph/vault"
	"github.com/xraph/vault/id"
	"github.com/xraph/vault/journal"
	"github.com/xraph/vault/store"
	"github.com/xraph/vault/store/sqlite"
	"github.com/xraph/vault/transfer"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()

	ctx := context.Background()
	s, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	applied, err := s.Applied(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != len(sqlite.Migrations) {
		t.Errorf("applied: got %d, want %d", len(applied), len(sqlite.Migrations))
	}
}

func TestCreditDebitCommit(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	acct := id.NewAccountID()

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Credit(ctx, acct, 90); err != nil {
			return err
		}
		a, err := tx.Debit(ctx, acct, 30)
		if err != nil {
			return err
		}
		if a.Balance != 60 {
			t.Errorf("balance inside tx: got %d, want 60", a.Balance)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	a, err := s.GetAccount(ctx, acct)
	if err != nil {
		t.Fatal(err)
	}
	if a.Balance != 60 || a.DepositCount != 1 || a.WithdrawalCount != 1 {
		t.Errorf("account: got %+v", a)
	}
	if a.ID != acct {
		t.Errorf("id: got %s, want %s", a.ID, acct)
	}

	tot, err := s.GetTotals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tot.Recorded != 60 || tot.Deposits != 1 || tot.Withdrawals != 1 {
		t.Errorf("totals: got %+v", tot)
	}
}

func TestRollbackDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	acct := id.NewAccountID()
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Credit(ctx, acct, 10); err != nil {
			return err
		}
		if err := tx.AppendEntry(ctx, &journal.Entry{ID: id.NewEntryID(), Kind: journal.KindDeposit, AccountID: acct, Amount: 10}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}

	a, _ := s.GetAccount(ctx, acct)
	if a.Balance != 0 || a.DepositCount != 0 {
		t.Errorf("account: got %+v, want empty", a)
	}
	entries, _ := s.ListEntries(ctx, journal.ListOpts{})
	if len(entries) != 0 {
		t.Errorf("entries: got %d, want 0", len(entries))
	}
}

func TestDebitBeyondBalanceFails(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Debit(ctx, id.NewAccountID(), 1)
		return err
	})
	if err == nil {
		t.Fatal("expected debit of empty account to fail")
	}
}

func TestListEntriesOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	a, b := id.NewAccountID(), id.NewAccountID()

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for _, e := range []*journal.Entry{
			{ID: id.NewEntryID(), Kind: journal.KindDeposit, AccountID: a, Amount: 1},
			{ID: id.NewEntryID(), Kind: journal.KindDeposit, AccountID: b, Amount: 2},
			{ID: id.NewEntryID(), Kind: journal.KindWithdrawal, AccountID: a, Amount: 3},
			{ID: id.NewEntryID(), Kind: journal.KindReconcile, Amount: 4},
		} {
			if err := tx.AppendEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	all, err := s.ListEntries(ctx, journal.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	for i, e := range all {
		if e.Seq != uint64(i+1) {
			t.Errorf("entry %d: seq %d", i, e.Seq)
		}
	}
	if !all[3].AccountID.IsNil() {
		t.Error("reconcile entry should have no account")
	}

	tests := []struct {
		name string
		opts journal.ListOpts
		want int
	}{
		{"account", journal.ListOpts{AccountID: a}, 2},
		{"kind", journal.ListOpts{Kind: journal.KindDeposit}, 2},
		{"limit", journal.ListOpts{Limit: 1}, 1},
		{"offset only", journal.ListOpts{Offset: 3}, 1},
		{"limit and offset", journal.ListOpts{Limit: 2, Offset: 1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListEntries(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestVaultOverSQLite(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	pool := transfer.NewPool(transfer.WithPolicy(transfer.Unrestricted()))
	v, err := vault.New(s, vault.Config{Capacity: 1000, WithdrawalLimit: 100}, vault.WithGateway(pool))
	if err != nil {
		t.Fatal(err)
	}

	alice := id.NewAccountID()
	if err := v.Deposit(ctx, alice, 100); err != nil {
		t.Fatal(err)
	}
	var ce *vault.CapacityExceededError
	if err := v.Deposit(ctx, alice, 950); !errors.As(err, &ce) || ce.Remaining != 900 {
		t.Fatalf("got %v, want CapacityExceeded{950, 900}", err)
	}
	if err := v.Withdraw(ctx, alice, 100); err != nil {
		t.Fatal(err)
	}

	stats, err := v.Stats(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Balance != 0 || stats.DepositCount != 1 || stats.WithdrawalCount != 1 {
		t.Errorf("stats: got %+v", stats)
	}

	entries, err := v.Entries(ctx, journal.ListOpts{AccountID: alice})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[1].Kind != journal.KindWithdrawal {
		t.Errorf("entries: got %+v", entries)
	}
}

func TestVaultRestartKeepsFundsWithdrawable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vault.db")
	cfg := vault.Config{Capacity: 1000, WithdrawalLimit: 100}
	alice := id.NewAccountID()

	open := func() *vault.Vault {
		t.Helper()
		s, err := sqlite.Open(ctx, path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		v, err := vault.New(s, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if err := v.Start(ctx); err != nil {
			t.Fatalf("start: %v", err)
		}
		return v
	}

	first := open()
	if err := first.Deposit(ctx, alice, 100); err != nil {
		t.Fatal(err)
	}
	if err := first.Stop(); err != nil {
		t.Fatal(err)
	}

	second := open()
	t.Cleanup(func() { _ = second.Stop() })

	if err := second.Withdraw(ctx, alice, 50); err != nil {
		t.Fatalf("withdraw after restart: %v", err)
	}
	b, err := second.Balance(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if b != 50 {
		t.Errorf("balance: got %d, want 50", b)
	}
	tot, err := second.Totals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tot.Recorded != 50 {
		t.Errorf("recorded: got %d, want 50", tot.Recorded)
	}
}
