// Package mongo provides a Vault store backed by MongoDB. Transactions
// need a replica set or sharded cluster.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/vault"
	"github.com/xraph/vault/account"
	"github.com/xraph/vault/id"
	"github.com/xraph/vault/journal"
	vaultstore "github.com/xraph/vault/store"
	"github.com/xraph/vault/types"
)

// Collection name constants.
const (
	colAccounts = "vault_accounts"
	colTotals   = "vault_totals"
	colEntries  = "vault_entries"

	totalsID = "totals"
)

// compile-time interface checks
var (
	_ vaultstore.Store = (*Store)(nil)
	_ vaultstore.Tx    = (*tx)(nil)
)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New creates a store over the named database of client.
func New(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

// Open connects to uri and returns a store over database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx) //nolint:errcheck // already failing
		return nil, fmt.Errorf("vault/mongo: ping: %w", err)
	}
	return New(client, database), nil
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates indexes for all vault collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("vault/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==================== Account Store ====================

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	if accountID.IsNil() {
		return nil, vault.ErrInvalidAccount
	}
	a, err := getAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: get account: %w", err)
	}
	return a, nil
}

func (s *Store) GetTotals(ctx context.Context) (*account.Totals, error) {
	t, err := getTotals(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: get totals: %w", err)
	}
	return t, nil
}

func getAccount(ctx context.Context, db *mongo.Database, accountID id.AccountID) (*account.Account, error) {
	var m accountModel
	err := db.Collection(colAccounts).FindOne(ctx, bson.M{"_id": accountID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return account.Empty(accountID), nil
		}
		return nil, err
	}
	return fromAccountModel(&m)
}

func getTotals(ctx context.Context, db *mongo.Database) (*account.Totals, error) {
	var m totalsModel
	err := db.Collection(colTotals).FindOne(ctx, bson.M{"_id": totalsID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return &account.Totals{}, nil
		}
		return nil, err
	}
	return fromTotalsModel(&m), nil
}

// ==================== Journal Store ====================

func (s *Store) ListEntries(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	filter := bson.M{}
	if !opts.AccountID.IsNil() {
		filter["account_id"] = opts.AccountID.String()
	}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colEntries).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: list entries: %w", err)
	}

	var models []entryModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("vault/mongo: list entries: %w", err)
	}

	result := make([]*journal.Entry, 0, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("vault/mongo: decode entry: %w", err)
		}
		result = append(result, e)
	}
	return result, nil
}

// ==================== Transactions ====================

// RunInTx runs fn in a session transaction. fn runs exactly once; the
// driver's automatic retry is not used because fn may perform an external
// transfer.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx vaultstore.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("vault/mongo: start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	if err := sess.StartTransaction(); err != nil {
		return fmt.Errorf("vault/mongo: start transaction: %w", err)
	}

	sctx := mongo.NewSessionContext(ctx, sess)
	if err := fn(sctx, &tx{db: s.db}); err != nil {
		if abortErr := sess.AbortTransaction(context.Background()); abortErr != nil {
			return errors.Join(err, fmt.Errorf("vault/mongo: abort: %w", abortErr))
		}
		return err
	}

	if err := sess.CommitTransaction(sctx); err != nil {
		return fmt.Errorf("vault/mongo: commit: %w", err)
	}
	return nil
}

// tx routes every operation through the session carried in ctx.
type tx struct {
	db *mongo.Database
}

func (t *tx) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	if accountID.IsNil() {
		return nil, vault.ErrInvalidAccount
	}
	a, err := getAccount(ctx, t.db, accountID)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: get account: %w", err)
	}
	return a, nil
}

func (t *tx) GetTotals(ctx context.Context) (*account.Totals, error) {
	tot, err := getTotals(ctx, t.db)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: get totals: %w", err)
	}
	return tot, nil
}

func (t *tx) Credit(ctx context.Context, accountID id.AccountID, amount types.Amount) (*account.Account, error) {
	if accountID.IsNil() {
		return nil, vault.ErrInvalidAccount
	}

	now := time.Now().UTC()
	var m accountModel
	err := t.db.Collection(colAccounts).FindOneAndUpdate(ctx,
		bson.M{"_id": accountID.String()},
		bson.M{
			"$inc":         bson.M{"balance": amount.Int64(), "deposit_count": int64(1)},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now, "withdrawal_count": int64(0)},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: credit account: %w", err)
	}

	if err := t.updateTotals(ctx, "credit totals", bson.M{
		"$inc": bson.M{"recorded": amount.Int64(), "deposits": int64(1)},
	}); err != nil {
		return nil, err
	}

	return fromAccountModel(&m)
}

func (t *tx) Debit(ctx context.Context, accountID id.AccountID, amount types.Amount) (*account.Account, error) {
	if accountID.IsNil() {
		return nil, vault.ErrInvalidAccount
	}

	var m accountModel
	err := t.db.Collection(colAccounts).FindOneAndUpdate(ctx,
		bson.M{"_id": accountID.String(), "balance": bson.M{"$gte": amount.Int64()}},
		bson.M{
			"$inc": bson.M{"balance": -amount.Int64(), "withdrawal_count": int64(1)},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("vault/mongo: debit account: %w", types.ErrUnderflow)
		}
		return nil, fmt.Errorf("vault/mongo: debit account: %w", err)
	}

	if err := t.updateTotals(ctx, "debit totals", bson.M{
		"$inc": bson.M{"recorded": -amount.Int64(), "withdrawals": int64(1)},
	}); err != nil {
		return nil, err
	}

	return fromAccountModel(&m)
}

func (t *tx) RaiseTotal(ctx context.Context, to types.Amount) (*account.Totals, error) {
	var m totalsModel
	err := t.db.Collection(colTotals).FindOneAndUpdate(ctx,
		bson.M{"_id": totalsID},
		bson.M{
			"$max": bson.M{"recorded": to.Int64()},
			"$inc": bson.M{"reconciliations": int64(1)},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: raise total: %w", err)
	}
	return fromTotalsModel(&m), nil
}

func (t *tx) AppendEntry(ctx context.Context, e *journal.Entry) error {
	var m totalsModel
	err := t.db.Collection(colTotals).FindOneAndUpdate(ctx,
		bson.M{"_id": totalsID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return fmt.Errorf("vault/mongo: next entry seq: %w", err)
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.Seq = uint64(m.Seq) //nolint:gosec // seq starts at 1

	if _, err := t.db.Collection(colEntries).InsertOne(ctx, toEntryModel(e)); err != nil {
		return fmt.Errorf("vault/mongo: append entry: %w", err)
	}
	return nil
}

func (t *tx) updateTotals(ctx context.Context, op string, update bson.M) error {
	_, err := t.db.Collection(colTotals).UpdateOne(ctx,
		bson.M{"_id": totalsID},
		update,
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("vault/mongo: %s: %w", op, err)
	}
	return nil
}

// ==================== Helpers ====================

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colEntries: {
			{
				Keys:    bson.D{{Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "seq", Value: 1}}},
		},
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
