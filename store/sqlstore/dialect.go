// Package sqlstore implements store.Store on database/sql. The SQLite and
// PostgreSQL backends share it and differ only in their Dialect.
package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures what differs between SQL databases.
type Dialect struct {
	// Name is used in error messages ("vault/<name>: ...").
	Name string

	// Numbered selects $1, $2, ... placeholders instead of ?.
	Numbered bool

	// LockSuffix is appended to reads that must hold the row until commit,
	// e.g. " FOR UPDATE". Empty for databases that lock the whole file.
	LockSuffix string

	// NoLimit is the LIMIT operand meaning "unbounded", required by
	// databases that reject OFFSET without LIMIT.
	NoLimit string

	// Migrations are applied in order by Store.Migrate.
	Migrations []Migration
}

// Migration is a versioned schema change.
type Migration struct {
	Name    string
	Version string
	Up      string
}

// rebind rewrites ? placeholders for dialects that number them.
func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
