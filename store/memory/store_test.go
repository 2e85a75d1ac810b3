package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/vault"
	"github.com/xraph/vault/id"
	"github.com/xraph/vault/journal"
	"github.com/xraph/vault/store"
)

func TestUnknownAccountIsEmpty(t *testing.T) {
	s := New()
	a, err := s.GetAccount(context.Background(), id.NewAccountID())
	if err != nil {
		t.Fatal(err)
	}
	if a.Balance != 0 || a.DepositCount != 0 || a.WithdrawalCount != 0 {
		t.Errorf("got %+v, want empty account", a)
	}
}

func TestNilAccountRejected(t *testing.T) {
	s := New()
	if _, err := s.GetAccount(context.Background(), id.Nil); !errors.Is(err, vault.ErrInvalidAccount) {
		t.Errorf("got %v, want ErrInvalidAccount", err)
	}
}

func TestRunInTxCommits(t *testing.T) {
	ctx := context.Background()
	s := New()
	acct := id.NewAccountID()

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Credit(ctx, acct, 70); err != nil {
			return err
		}
		if _, err := tx.Debit(ctx, acct, 20); err != nil {
			return err
		}
		return tx.AppendEntry(ctx, &journal.Entry{ID: id.NewEntryID(), Kind: journal.KindDeposit, AccountID: acct, Amount: 70})
	})
	if err != nil {
		t.Fatal(err)
	}

	a, _ := s.GetAccount(ctx, acct)
	if a.Balance != 50 || a.DepositCount != 1 || a.WithdrawalCount != 1 {
		t.Errorf("account: got %+v", a)
	}
	tot, _ := s.GetTotals(ctx)
	if tot.Recorded != 50 || tot.Deposits != 1 || tot.Withdrawals != 1 {
		t.Errorf("totals: got %+v", tot)
	}

	entries, _ := s.ListEntries(ctx, journal.ListOpts{})
	if len(entries) != 1 || entries[0].Seq != 1 {
		t.Errorf("entries: got %+v", entries)
	}
}

func TestRunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	acct := id.NewAccountID()
	boom := errors.New("boom")

	var leaked store.Tx
	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		leaked = tx
		if _, err := tx.Credit(ctx, acct, 10); err != nil {
			return err
		}
		_ = tx.AppendEntry(ctx, &journal.Entry{ID: id.NewEntryID(), Kind: journal.KindDeposit})

		// Reads outside the tx see committed state only.
		a, _ := s.GetAccount(ctx, acct)
		if a.Balance != 0 {
			t.Errorf("uncommitted balance visible: %d", a.Balance)
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
	if _, err := leaked.Credit(ctx, acct, 1); !errors.Is(err, vault.ErrTxDone) {
		t.Errorf("finished tx: got %v, want ErrTxDone", err)
	}
}

func TestRaiseTotalNeverLowers(t *testing.T) {
	ctx := context.Background()
	s := New()
	acct := id.NewAccountID()

	_ = s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Credit(ctx, acct, 40)
		return err
	})
	_ = s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.RaiseTotal(ctx, 10)
		return err
	})

	tot, _ := s.GetTotals(ctx)
	if tot.Recorded != 40 {
		t.Errorf("recorded: got %d, want 40", tot.Recorded)
	}
	if tot.Reconciliations != 1 {
		t.Errorf("reconciliations: got %d, want 1", tot.Reconciliations)
	}
}

func TestListEntriesFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := id.NewAccountID(), id.NewAccountID()

	_ = s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for _, e := range []*journal.Entry{
			{ID: id.NewEntryID(), Kind: journal.KindDeposit, AccountID: a},
			{ID: id.NewEntryID(), Kind: journal.KindDeposit, AccountID: b},
			{ID: id.NewEntryID(), Kind: journal.KindWithdrawal, AccountID: a},
			{ID: id.NewEntryID(), Kind: journal.KindReconcile},
		} {
			if err := tx.AppendEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})

	tests := []struct {
		name string
		opts journal.ListOpts
		want int
	}{
		{"all", journal.ListOpts{}, 4},
		{"account a", journal.ListOpts{AccountID: a}, 2},
		{"deposits", journal.ListOpts{Kind: journal.KindDeposit}, 2},
		{"limit", journal.ListOpts{Limit: 3}, 3},
		{"offset past end", journal.ListOpts{Offset: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListEntries(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}
}

func TestClosedStore(t *testing.T) {
	s := New()
	_ = s.Close()
	if err := s.Ping(context.Background()); !errors.Is(err, vault.ErrStoreClosed) {
		t.Errorf("got %v, want ErrStoreClosed", err)
	}
}
