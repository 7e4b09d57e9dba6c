package shard

import (
	"context"
	"fmt"
	"time"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// initOrgDailySummaries creates the daily rollup table.
//
// Version-less ReplacingMergeTree: a re-run over unchanged input produces
// byte-identical rows, so deduplication keeps the rollup idempotent without a
// version column.
// Table: ReplacingMergeTree ORDER BY (org_id, platform, metric_date)
func (db *DB) initOrgDailySummaries(ctx context.Context) error {
	schemaSQL := shardmodels.ColumnsToSchemaSQL(shardmodels.OrgDailySummaryColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY (org_id, platform, metric_date)
	`, db.Name, shardmodels.OrgDailySummariesTableName, schemaSQL, clickhouse.Engine(clickhouse.ReplacingMergeTree, ""))
	return db.Exec(ctx, query)
}

// GetOrgDailySummaries returns the latest (deduped) rows for one org and date,
// one per platform (connector sources included as synthetic platforms).
func (db *DB) GetOrgDailySummaries(ctx context.Context, orgID string, date time.Time) ([]shardmodels.OrgDailySummary, error) {
	query := fmt.Sprintf(`
		SELECT
			org_id, platform, metric_date, campaigns_count,
			impressions, clicks, spend, conversions, conversion_value,
			ctr, cpc, cpm, roas, cpa
		FROM "%s"."%s" FINAL
		WHERE org_id = ? AND metric_date = toDate(?)
		ORDER BY platform
	`, db.Name, shardmodels.OrgDailySummariesTableName)

	var out []shardmodels.OrgDailySummary
	if err := db.SelectWithFinal(ctx, &out, query, orgID, date.Format(time.DateOnly)); err != nil {
		return nil, err
	}

	return out, nil
}
