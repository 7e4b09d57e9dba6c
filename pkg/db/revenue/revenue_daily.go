package revenue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	"github.com/spendwise-io/spendx/pkg/db/entities"
	revenuemodels "github.com/spendwise-io/spendx/pkg/db/models/revenue"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// initConnectorRevenueDaily creates the daily rollup table. Version-less
// ReplacingMergeTree: re-running a day over unchanged events writes identical
// rows that collapse on merge.
func (db *DB) initConnectorRevenueDaily(ctx context.Context) error {
	schemaSQL := revenuemodels.ColumnsToSchemaSQL(revenuemodels.ConnectorRevenueDailyColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY (org_id, source, event_date)
	`, db.Name, revenuemodels.ConnectorRevenueDailyTableName, schemaSQL,
		clickhouse.Engine(clickhouse.ReplacingMergeTree, ""))
	return db.Db.Exec(ctx, query)
}

// quotedList renders fixed vocabulary values as a quoted SQL IN list. Inputs
// come from the entities enums, never from callers.
func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	return strings.Join(quoted, ", ")
}

// RollupConnectorRevenue computes the org x source revenue rollup for the
// target date, one statement per source so each source's success-status set
// applies. events counts every ingested event for the day; conversions and
// revenue count the success subset only.
func (db *DB) RollupConnectorRevenue(ctx context.Context, date time.Time) error {
	dateStr := date.Format(time.DateOnly)

	for _, source := range entities.Sources() {
		statusList := quotedList(entities.SuccessStatuses(source))
		query := fmt.Sprintf(`
			INSERT INTO "%s"."%s" (org_id, source, event_date, events, conversions, revenue)
			SELECT
				org_id,
				'%s' AS source,
				toDate(?) AS event_date,
				count() AS events,
				countIf(status IN (%s)) AS conversions,
				sumIf(value, status IN (%s)) AS revenue
			FROM "%s"."%s" FINAL
			WHERE source = '%s' AND toDate(transacted_at) = toDate(?)
			GROUP BY org_id
		`,
			db.Name, revenuemodels.ConnectorRevenueDailyTableName,
			source,
			statusList,
			statusList,
			db.Name, shardmodels.ConnectorEventsTableName,
			source,
		)

		if err := db.Exec(ctx, query, dateStr, dateStr); err != nil {
			return fmt.Errorf("connector revenue rollup %s: %w", source, err)
		}
	}

	return nil
}

// GetConnectorRevenueDaily returns the rollup rows for one org over a date
// range, inclusive on both ends.
func (db *DB) GetConnectorRevenueDaily(ctx context.Context, orgID string, from, to time.Time) ([]revenuemodels.ConnectorRevenueDaily, error) {
	query := fmt.Sprintf(`
		SELECT org_id, source, event_date, events, conversions, revenue
		FROM "%s"."%s" FINAL
		WHERE org_id = ? AND event_date >= toDate(?) AND event_date <= toDate(?)
		ORDER BY event_date, source
	`, db.Name, revenuemodels.ConnectorRevenueDailyTableName)

	var out []revenuemodels.ConnectorRevenueDaily
	if err := db.SelectWithFinal(ctx, &out, query,
		orgID, from.Format(time.DateOnly), to.Format(time.DateOnly)); err != nil {
		return nil, err
	}

	return out, nil
}
