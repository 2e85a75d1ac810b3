package sqlstore

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/xraph/vault/account"
	"github.com/xraph/vault/id"
	"github.com/xraph/vault/journal"
	"github.com/xraph/vault/types"
)

// ==================== Account models ====================

type accountModel struct {
	ID              string
	Balance         int64
	DepositCount    int64
	WithdrawalCount int64
	CreatedAt       timestamp
	UpdatedAt       timestamp
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse account id: %w", err)
	}
	a := &account.Account{
		ID:              accountID,
		Balance:         types.FromInt64(m.Balance),
		DepositCount:    uint64(m.DepositCount),    //nolint:gosec // counters are never negative
		WithdrawalCount: uint64(m.WithdrawalCount), //nolint:gosec // counters are never negative
	}
	a.CreatedAt = m.CreatedAt.Time
	a.UpdatedAt = m.UpdatedAt.Time
	return a, nil
}

type totalsModel struct {
	Recorded        int64
	Deposits        int64
	Withdrawals     int64
	Reconciliations int64
}

func fromTotalsModel(m *totalsModel) (*account.Totals, error) {
	return &account.Totals{
		Recorded:        types.FromInt64(m.Recorded),
		Deposits:        uint64(m.Deposits),        //nolint:gosec // counters are never negative
		Withdrawals:     uint64(m.Withdrawals),     //nolint:gosec // counters are never negative
		Reconciliations: uint64(m.Reconciliations), //nolint:gosec // counters are never negative
	}, nil
}

// ==================== Journal models ====================

type entryModel struct {
	Seq          int64
	ID           string
	Kind         string
	AccountID    string
	Amount       int64
	BalanceAfter int64
	TotalAfter   int64
	CreatedAt    timestamp
}

func toEntryModel(e *journal.Entry) *entryModel {
	accountID := ""
	if !e.AccountID.IsNil() {
		accountID = e.AccountID.String()
	}
	return &entryModel{
		Seq:          int64(e.Seq), //nolint:gosec // assigned from an int64 column
		ID:           e.ID.String(),
		Kind:         string(e.Kind),
		AccountID:    accountID,
		Amount:       e.Amount.Int64(),
		BalanceAfter: e.BalanceAfter.Int64(),
		TotalAfter:   e.TotalAfter.Int64(),
		CreatedAt:    timestamp{Time: e.CreatedAt.UTC()},
	}
}

func fromEntryModel(m *entryModel) (*journal.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse entry id: %w", err)
	}

	var accountID id.AccountID
	if m.AccountID != "" {
		accountID, err = id.ParseAccountID(m.AccountID)
		if err != nil {
			return nil, fmt.Errorf("parse account id: %w", err)
		}
	}

	return &journal.Entry{
		ID:           entryID,
		Seq:          uint64(m.Seq), //nolint:gosec // seq starts at 1
		Kind:         journal.Kind(m.Kind),
		AccountID:    accountID,
		Amount:       types.FromInt64(m.Amount),
		BalanceAfter: types.FromInt64(m.BalanceAfter),
		TotalAfter:   types.FromInt64(m.TotalAfter),
		CreatedAt:    m.CreatedAt.Time,
	}, nil
}

// ==================== Helpers ====================

// timestamp scans the time representations drivers return: time.Time from
// PostgreSQL, text or unix seconds from SQLite.
type timestamp struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

// Scan implements sql.Scanner.
func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}

// Value implements driver.Valuer.
func (t timestamp) Value() (driver.Value, error) {
	return t.Time, nil
}
