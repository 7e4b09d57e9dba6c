package source

import "context"

// Store describes the read-only surface of the legacy store used by the
// migration copy loop.
type Store interface {
	DatabaseName() string

	// FetchPage reads one keyset page of a tenant's rows from a legacy
	// table, ordered by row id. An empty afterID starts from the beginning;
	// the returned cursor is the id of the last row in the page and feeds
	// the next call. A page shorter than limit means the table is exhausted.
	FetchPage(ctx context.Context, table string, columns []string, orgID string, afterID string, limit int) ([][]interface{}, string, error)

	Close() error
}
