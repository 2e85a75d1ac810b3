package vault

import "github.com/xraph/vault/id"

// ID is the primary identifier type for all Vault entities.
type ID = id.ID

// AccountID identifies a depositor.
type AccountID = id.AccountID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

// NewAccountID returns a fresh account identifier.
var NewAccountID = id.NewAccountID
