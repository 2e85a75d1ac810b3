package journal

import "context"

// Store defines read access to the journal.
type Store interface {
	ListEntries(ctx context.Context, opts ListOpts) ([]*Entry, error)
}
