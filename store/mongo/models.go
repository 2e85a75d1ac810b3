package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/vault/account"
	"github.com/xraph/vault/id"
	"github.com/xraph/vault/journal"
	"github.com/xraph/vault/types"
)

// ==================== Account models ====================

type accountModel struct {
	ID              string    `bson:"_id"`
	Balance         int64     `bson:"balance"`
	DepositCount    int64     `bson:"deposit_count"`
	WithdrawalCount int64     `bson:"withdrawal_count"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
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
	a.CreatedAt = m.CreatedAt
	a.UpdatedAt = m.UpdatedAt
	return a, nil
}

// totalsModel is the single aggregates document. Seq is the last journal
// sequence number handed out.
type totalsModel struct {
	ID              string `bson:"_id"`
	Recorded        int64  `bson:"recorded"`
	Deposits        int64  `bson:"deposits"`
	Withdrawals     int64  `bson:"withdrawals"`
	Reconciliations int64  `bson:"reconciliations"`
	Seq             int64  `bson:"seq"`
}

func fromTotalsModel(m *totalsModel) *account.Totals {
	return &account.Totals{
		Recorded:        types.FromInt64(m.Recorded),
		Deposits:        uint64(m.Deposits),        //nolint:gosec // counters are never negative
		Withdrawals:     uint64(m.Withdrawals),     //nolint:gosec // counters are never negative
		Reconciliations: uint64(m.Reconciliations), //nolint:gosec // counters are never negative
	}
}

// ==================== Journal models ====================

type entryModel struct {
	ID           string    `bson:"_id"`
	Seq          int64     `bson:"seq"`
	Kind         string    `bson:"kind"`
	AccountID    string    `bson:"account_id"`
	Amount       int64     `bson:"amount"`
	BalanceAfter int64     `bson:"balance_after"`
	TotalAfter   int64     `bson:"total_after"`
	CreatedAt    time.Time `bson:"created_at"`
}

func toEntryModel(e *journal.Entry) *entryModel {
	accountID := ""
	if !e.AccountID.IsNil() {
		accountID = e.AccountID.String()
	}
	return &entryModel{
		ID:           e.ID.String(),
		Seq:          int64(e.Seq), //nolint:gosec // assigned from an int64 counter
		Kind:         string(e.Kind),
		AccountID:    accountID,
		Amount:       e.Amount.Int64(),
		BalanceAfter: e.BalanceAfter.Int64(),
		TotalAfter:   e.TotalAfter.Int64(),
		CreatedAt:    e.CreatedAt,
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
		CreatedAt:    m.CreatedAt.UTC(),
	}, nil
}
