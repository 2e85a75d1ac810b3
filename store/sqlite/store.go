// Package sqlite provides a Vault store backed by SQLite (modernc.org/sqlite,
// no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	vaultstore "github.com/xraph/vault/store"
	"github.com/xraph/vault/store/sqlstore"
)

// compile-time interface check
var _ vaultstore.Store = (*Store)(nil)

// Dialect is the SQLite flavour of sqlstore.
var Dialect = sqlstore.Dialect{
	Name:       "sqlite",
	NoLimit:    "-1",
	Migrations: Migrations,
}

// Store implements store.Store using SQLite.
type Store struct {
	*sqlstore.Store
}

// New creates a SQLite store over an open database.
func New(db *sql.DB) *Store {
	return &Store{Store: sqlstore.New(db, Dialect)}
}

// Open opens (creating if needed) the database file at path with WAL
// journaling, a busy timeout and immediate write transactions.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("vault/sqlite: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("vault/sqlite: ping: %w", err)
	}
	return New(db), nil
}

// DSN builds the driver connection string for path.
func DSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	q.Set("_time_format", "sqlite")
	return "file:" + path + "?" + q.Encode()
}
