// Package postgres provides a Vault store backed by PostgreSQL through the
// pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	vaultstore "github.com/xraph/vault/store"
	"github.com/xraph/vault/store/sqlstore"
)

// compile-time interface check
var _ vaultstore.Store = (*Store)(nil)

// Dialect is the PostgreSQL flavour of sqlstore. Reads inside a
// transaction lock the rows they return so concurrent processes sharing
// the database serialize on the totals row.
var Dialect = sqlstore.Dialect{
	Name:       "postgres",
	Numbered:   true,
	LockSuffix: " FOR UPDATE",
	NoLimit:    "ALL",
	Migrations: Migrations,
}

// Store implements store.Store using PostgreSQL.
type Store struct {
	*sqlstore.Store
}

// New creates a PostgreSQL store over an open database.
func New(db *sql.DB) *Store {
	return &Store{Store: sqlstore.New(db, Dialect)}
}

// Open connects to the database at dsn (a postgres:// URL or key=value
// string).
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("vault/postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("vault/postgres: ping: %w", err)
	}
	return New(db), nil
}
