package shard

import (
	"context"
	"fmt"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// initCampaignPeriodSummaries creates the per-campaign trailing-window rollup table.
// Table: ReplacingMergeTree ORDER BY (org_id, platform, campaign_id, period_days)
func (db *DB) initCampaignPeriodSummaries(ctx context.Context) error {
	schemaSQL := shardmodels.ColumnsToSchemaSQL(shardmodels.CampaignPeriodSummaryColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY (org_id, platform, campaign_id, period_days)
	`, db.Name, shardmodels.CampaignPeriodSummariesTableName, schemaSQL, clickhouse.Engine(clickhouse.ReplacingMergeTree, ""))
	return db.Exec(ctx, query)
}

// GetCampaignPeriodSummaries returns the latest (deduped) rows for one org and
// window length across all platforms and campaigns.
func (db *DB) GetCampaignPeriodSummaries(ctx context.Context, orgID string, periodDays int) ([]shardmodels.CampaignPeriodSummary, error) {
	query := fmt.Sprintf(`
		SELECT
			org_id, platform, campaign_id, campaign_name, period_days,
			period_start, period_end,
			impressions, clicks, spend, conversions, conversion_value,
			ctr, cpc, cpm, roas, cpa, budget_utilization_pct
		FROM "%s"."%s" FINAL
		WHERE org_id = ? AND period_days = ?
		ORDER BY platform, campaign_id
	`, db.Name, shardmodels.CampaignPeriodSummariesTableName)

	var out []shardmodels.CampaignPeriodSummary
	if err := db.SelectWithFinal(ctx, &out, query, orgID, uint16(periodDays)); err != nil {
		return nil, err
	}

	return out, nil
}
