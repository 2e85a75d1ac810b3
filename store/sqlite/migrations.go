package sqlite

import "github.com/xraph/vault/store/sqlstore"

// Migrations is the schema history of the Vault store (SQLite).
var Migrations = []sqlstore.Migration{
	{
		Name:    "create_vault_accounts",
		Version: "20240101000001",
		Up: `
CREATE TABLE IF NOT EXISTS vault_accounts (
    id               TEXT PRIMARY KEY,
    balance          INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
    deposit_count    INTEGER NOT NULL DEFAULT 0,
    withdrawal_count INTEGER NOT NULL DEFAULT 0,
    created_at       TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);
`,
	},
	{
		Name:    "create_vault_totals",
		Version: "20240101000002",
		Up: `
CREATE TABLE IF NOT EXISTS vault_totals (
    id              INTEGER PRIMARY KEY CHECK (id = 1),
    recorded        INTEGER NOT NULL DEFAULT 0 CHECK (recorded >= 0),
    deposits        INTEGER NOT NULL DEFAULT 0,
    withdrawals     INTEGER NOT NULL DEFAULT 0,
    reconciliations INTEGER NOT NULL DEFAULT 0
);

INSERT INTO vault_totals (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
`,
	},
	{
		Name:    "create_vault_entries",
		Version: "20240101000003",
		Up: `
CREATE TABLE IF NOT EXISTS vault_entries (
    seq           INTEGER PRIMARY KEY,
    id            TEXT NOT NULL UNIQUE,
    kind          TEXT NOT NULL,
    account_id    TEXT NOT NULL DEFAULT '',
    amount        INTEGER NOT NULL,
    balance_after INTEGER NOT NULL DEFAULT 0,
    total_after   INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_vault_entries_account ON vault_entries (account_id, seq);
CREATE INDEX IF NOT EXISTS idx_vault_entries_kind ON vault_entries (kind, seq);
`,
	},
}
