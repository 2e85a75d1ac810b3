package postgres

import "github.com/xraph/vault/store/sqlstore"

// Migrations is the schema history of the Vault store (PostgreSQL).
var Migrations = []sqlstore.Migration{
	{
		Name:    "create_vault_accounts",
		Version: "20240101000001",
		Up: `
CREATE TABLE IF NOT EXISTS vault_accounts (
    id               TEXT PRIMARY KEY,
    balance          BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    deposit_count    BIGINT NOT NULL DEFAULT 0,
    withdrawal_count BIGINT NOT NULL DEFAULT 0,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
	},
	{
		Name:    "create_vault_totals",
		Version: "20240101000002",
		Up: `
CREATE TABLE IF NOT EXISTS vault_totals (
    id              SMALLINT PRIMARY KEY CHECK (id = 1),
    recorded        BIGINT NOT NULL DEFAULT 0 CHECK (recorded >= 0),
    deposits        BIGINT NOT NULL DEFAULT 0,
    withdrawals     BIGINT NOT NULL DEFAULT 0,
    reconciliations BIGINT NOT NULL DEFAULT 0
);

INSERT INTO vault_totals (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
`,
	},
	{
		Name:    "create_vault_entries",
		Version: "20240101000003",
		Up: `
CREATE TABLE IF NOT EXISTS vault_entries (
    seq           BIGINT PRIMARY KEY,
    id            TEXT NOT NULL UNIQUE,
    kind          TEXT NOT NULL,
    account_id    TEXT NOT NULL DEFAULT '',
    amount        BIGINT NOT NULL,
    balance_after BIGINT NOT NULL DEFAULT 0,
    total_after   BIGINT NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vault_entries_account ON vault_entries (account_id, seq);
CREATE INDEX IF NOT EXISTS idx_vault_entries_kind ON vault_entries (kind, seq);
`,
	},
}
