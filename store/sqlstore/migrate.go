package sqlstore

import (
	"context"
	"fmt"
	"time"
)

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS vault_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TEXT NOT NULL
)`

// Migrate applies every dialect migration not yet recorded in
// vault_migrations. Each migration runs in its own transaction.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return s.wrap("create migrations table", err)
	}

	for _, m := range s.d.Migrations {
		if err := s.apply(ctx, m); err != nil {
			return s.wrap(fmt.Sprintf("migration %s (%s) failed", m.Name, m.Version), err)
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var n int
	if err := tx.QueryRowContext(ctx,
		s.d.rebind(`SELECT COUNT(*) FROM vault_migrations WHERE version = ?`), m.Version,
	).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		s.d.rebind(`INSERT INTO vault_migrations (version, name, applied_at) VALUES (?, ?, ?)`),
		m.Version, m.Name, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Applied returns the versions recorded in vault_migrations, oldest first.
func (s *Store) Applied(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM vault_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, s.wrap("list migrations", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, s.wrap("scan migration", err)
		}
		versions = append(versions, v)
	}
	return versions, s.wrap("list migrations", rows.Err())
}
