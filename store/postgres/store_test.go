package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/xraph/vault/id"
	"github.com/xraph/vault/journal"
	"github.com/xraph/vault/store"
	"github.com/xraph/vault/store/postgres"
	"github.com/xraph/vault/types"
)

var accountColumns = []string{"id", "balance", "deposit_count", "withdrawal_count", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return postgres.New(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestGetAccount(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)
	acct := id.NewAccountID()
	now := time.Now().UTC()

	mock.ExpectQuery(q("FROM vault_accounts WHERE id = $1")).
		WithArgs(acct.String()).
		WillReturnRows(sqlmock.NewRows(accountColumns).AddRow(acct.String(), 70, 2, 1, now, now))

	a, err := s.GetAccount(ctx, acct)
	if err != nil {
		t.Fatal(err)
	}
	if a.Balance != 70 || a.DepositCount != 2 || a.WithdrawalCount != 1 {
		t.Errorf("got %+v", a)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetAccountUnknownIsEmpty(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)
	acct := id.NewAccountID()

	mock.ExpectQuery(q("FROM vault_accounts WHERE id = $1")).
		WithArgs(acct.String()).
		WillReturnRows(sqlmock.NewRows(accountColumns))

	a, err := s.GetAccount(ctx, acct)
	if err != nil {
		t.Fatal(err)
	}
	if a.Balance != 0 || a.ID != acct {
		t.Errorf("got %+v, want empty account", a)
	}
}

func TestCreditInTx(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)
	acct := id.NewAccountID()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO vault_accounts")).
		WithArgs(acct.String(), int64(25), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q("UPDATE vault_totals SET recorded = recorded + $1, deposits = deposits + 1 WHERE id = 1")).
		WithArgs(int64(25)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("FROM vault_accounts WHERE id = $1 FOR UPDATE")).
		WithArgs(acct.String()).
		WillReturnRows(sqlmock.NewRows(accountColumns).AddRow(acct.String(), 25, 1, 0, now, now))
	mock.ExpectCommit()

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		a, err := tx.Credit(ctx, acct, 25)
		if err != nil {
			return err
		}
		if a.Balance != 25 {
			t.Errorf("balance: got %d, want 25", a.Balance)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.RunInTx(context.Background(), func(context.Context, store.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDebitWithoutFunds(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE vault_accounts SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Debit(ctx, id.NewAccountID(), 5)
		return err
	})
	if !errors.Is(err, types.ErrUnderflow) {
		t.Fatalf("got %v, want ErrUnderflow", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListEntriesOffsetWithoutLimit(t *testing.T) {
	s, mock := newMockStore(t)
	acct := id.NewAccountID()
	entryID := id.NewEntryID()

	mock.ExpectQuery(q("WHERE 1 = 1 AND account_id = $1 ORDER BY seq ASC LIMIT ALL OFFSET 2")).
		WithArgs(acct.String()).
		WillReturnRows(sqlmock.NewRows([]string{
			"seq", "id", "kind", "account_id", "amount", "balance_after", "total_after", "created_at",
		}).AddRow(3, entryID.String(), "deposit", acct.String(), 10, 30, 30, time.Now()))

	entries, err := s.ListEntries(context.Background(), journal.ListOpts{AccountID: acct, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Seq != 3 || entries[0].ID != entryID {
		t.Errorf("got %+v", entries)
	}
}

func TestMigrateSkipsApplied(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(q("CREATE TABLE IF NOT EXISTS vault_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	last := len(postgres.Migrations) - 1
	for i, m := range postgres.Migrations {
		mock.ExpectBegin()
		count := 1
		if i == last {
			count = 0
		}
		mock.ExpectQuery(q("SELECT COUNT(*) FROM vault_migrations WHERE version = $1")).
			WithArgs(m.Version).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
		if count == 1 {
			mock.ExpectRollback()
			continue
		}
		mock.ExpectExec(q("CREATE TABLE IF NOT EXISTS vault_entries")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(q("INSERT INTO vault_migrations (version, name, applied_at) VALUES ($1, $2, $3)")).
			WithArgs(m.Version, m.Name, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
	}

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestOpenRejectsBadDSN(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := postgres.Open(ctx, "postgres://nobody@127.0.0.1:1/none?connect_timeout=1"); err == nil {
		t.Fatal("expected connection failure")
	}
}
