package shard

import (
	"context"
	"fmt"
	"time"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// initOrgTimeseries creates the blended daily timeseries table.
// Table: ReplacingMergeTree ORDER BY (org_id, metric_date)
func (db *DB) initOrgTimeseries(ctx context.Context) error {
	schemaSQL := shardmodels.ColumnsToSchemaSQL(shardmodels.OrgTimeseriesColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY (org_id, metric_date)
	`, db.Name, shardmodels.OrgTimeseriesTableName, schemaSQL, clickhouse.Engine(clickhouse.ReplacingMergeTree, ""))
	return db.Exec(ctx, query)
}

// GetOrgTimeseries returns the latest (deduped) daily points for one org over
// [from, to], ordered by date.
func (db *DB) GetOrgTimeseries(ctx context.Context, orgID string, from, to time.Time) ([]shardmodels.OrgTimeseries, error) {
	query := fmt.Sprintf(`
		SELECT
			org_id, metric_date, impressions, clicks, spend,
			conversions, conversion_value, total_revenue
		FROM "%s"."%s" FINAL
		WHERE org_id = ? AND metric_date >= toDate(?) AND metric_date <= toDate(?)
		ORDER BY metric_date
	`, db.Name, shardmodels.OrgTimeseriesTableName)

	var out []shardmodels.OrgTimeseries
	if err := db.SelectWithFinal(ctx, &out, query, orgID, from.Format(time.DateOnly), to.Format(time.DateOnly)); err != nil {
		return nil, err
	}

	return out, nil
}
