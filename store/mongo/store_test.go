package mongo_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/xraph/vault/id"
	"github.com/xraph/vault/journal"
	"github.com/xraph/vault/store"
	"github.com/xraph/vault/store/mongo"
	"github.com/xraph/vault/types"
)

// openStore connects to VAULT_MONGO_URI (a replica set) using a fresh
// database per test.
func openStore(t *testing.T) *mongo.Store {
	t.Helper()

	uri := os.Getenv("VAULT_MONGO_URI")
	if uri == "" {
		t.Skip("VAULT_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := mongo.Open(ctx, uri, "vault_test_"+id.NewEntryID().String())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.DB().Drop(context.Background())
		_ = s.Close()
	})

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestCreditDebit(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	acct := id.NewAccountID()

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Credit(ctx, acct, 80); err != nil {
			return err
		}
		_, err := tx.Debit(ctx, acct, 30)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	a, err := s.GetAccount(ctx, acct)
	if err != nil {
		t.Fatal(err)
	}
	if a.Balance != 50 || a.DepositCount != 1 || a.WithdrawalCount != 1 {
		t.Errorf("account: got %+v", a)
	}
	tot, _ := s.GetTotals(ctx)
	if tot.Recorded != 50 {
		t.Errorf("recorded: got %d, want 50", tot.Recorded)
	}
}

func TestAbortDiscardsEffects(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	acct := id.NewAccountID()
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Credit(ctx, acct, 10); err != nil {
			return err
		}
		if err := tx.AppendEntry(ctx, &journal.Entry{ID: id.NewEntryID(), Kind: journal.KindDeposit, AccountID: acct}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}

	a, _ := s.GetAccount(ctx, acct)
	if a.Balance != 0 {
		t.Errorf("balance: got %d, want 0", a.Balance)
	}
	entries, _ := s.ListEntries(ctx, journal.ListOpts{})
	if len(entries) != 0 {
		t.Errorf("entries: got %d, want 0", len(entries))
	}
}

func TestRaiseTotalKeepsHigherValue(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	for _, to := range []uint64{40, 10} {
		err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			_, err := tx.RaiseTotal(ctx, types.Amount(to))
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	tot, _ := s.GetTotals(ctx)
	if tot.Recorded != 40 || tot.Reconciliations != 2 {
		t.Errorf("totals: got %+v", tot)
	}
}
