package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// FetchPage reads up to limit rows for one tenant from the given legacy table,
// keyset-paginated by the id column. Values come back as driver-native Go
// types (int64, string, time.Time, nil for NULL), which line up with what the
// shard batch writer expects on the other side of the copy.
func (db *DB) FetchPage(ctx context.Context, table string, columns []string, orgID string, afterID string, limit int) ([][]interface{}, string, error) {
	idIdx := -1
	for i, col := range columns {
		if col == "id" {
			idIdx = i
			break
		}
	}
	if idIdx < 0 {
		return nil, "", fmt.Errorf("fetch %s: column list has no id column", table)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE org_id = $1 AND id > $2
		ORDER BY id
		LIMIT $3
	`, selectList(columns), pgx.Identifier{table}.Sanitize())

	rows, err := db.Query(ctx, query, orgID, afterID, limit)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s page: %w", table, err)
	}
	defer rows.Close()

	page := make([][]interface{}, 0, limit)
	lastID := afterID
	for rows.Next() {
		values, valErr := rows.Values()
		if valErr != nil {
			return nil, "", fmt.Errorf("read %s row: %w", table, valErr)
		}

		id, ok := values[idIdx].(string)
		if !ok {
			return nil, "", fmt.Errorf("read %s row: id column is %T, want string", table, values[idIdx])
		}
		lastID = id
		page = append(page, values)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("fetch %s page: %w", table, err)
	}

	return page, lastID, nil
}

// selectList renders the column list for the page query. JSON payload columns
// are cast to text so their contents travel as opaque strings and are never
// parsed or re-encoded on the way to the shard.
func selectList(columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		quoted := pgx.Identifier{col}.Sanitize()
		if col == "payload" {
			parts = append(parts, fmt.Sprintf("%s::text AS %s", quoted, quoted))
			continue
		}
		parts = append(parts, quoted)
	}
	return strings.Join(parts, ", ")
}
