package shard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spendwise-io/spendx/pkg/db/entities"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// The aggregation pipeline runs entirely inside the shard's database as
// INSERT ... SELECT statements: no rows travel through Go. Every rollup write
// is a full-row replace keyed by date, so an interrupted run leaves some dates
// unrefreshed but never mixed. Re-running over unchanged input writes
// identical rows, which the version-less ReplacingMergeTree tables collapse.
//
// Ratio semantics, everywhere: 0 on a zero denominator via if() guards.
// CPC/CPM/CPA are truncating integer divisions (intDiv) kept in minor units;
// CTR/ROAS/utilization are Float64.

// quotedList renders fixed vocabulary values as a quoted SQL IN list. Inputs
// come from the entities enums, never from callers.
func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	return strings.Join(quoted, ", ")
}

// AggregateOrgDaily computes the org x platform daily summary for the target
// date: one statement per ad platform over active campaigns left-joined to the
// date's campaign metrics, then one statement per connector source folding
// success-status events in as synthetic platforms (ad fields zero).
func (db *DB) AggregateOrgDaily(ctx context.Context, date time.Time) error {
	dateStr := date.Format(time.DateOnly)

	for _, platform := range entities.AdPlatforms() {
		query := fmt.Sprintf(`
			INSERT INTO "%s"."%s" (
				org_id, platform, metric_date, campaigns_count,
				impressions, clicks, spend, conversions, conversion_value,
				ctr, cpc, cpm, roas, cpa
			)
			SELECT
				c.org_id AS org_id,
				'%s' AS platform,
				toDate(?) AS metric_date,
				toUInt32(countDistinct(c.id)) AS campaigns_count,
				sum(m.impressions) AS impressions,
				sum(m.clicks) AS clicks,
				sum(m.spend_amount) AS spend,
				sum(m.conversions) AS conversions,
				sum(m.conversion_value) AS conversion_value,
				if(sum(m.impressions) > 0, sum(m.clicks) / sum(m.impressions), 0) AS ctr,
				if(sum(m.clicks) > 0, intDiv(sum(m.spend_amount), sum(m.clicks)), 0) AS cpc,
				if(sum(m.impressions) > 0, intDiv(sum(m.spend_amount) * 1000, sum(m.impressions)), 0) AS cpm,
				if(sum(m.spend_amount) > 0, sum(m.conversion_value) / sum(m.spend_amount), 0) AS roas,
				if(sum(m.conversions) > 0, intDiv(sum(m.spend_amount), sum(m.conversions)), 0) AS cpa
			FROM (
				SELECT id, org_id
				FROM "%s"."%s" FINAL
				WHERE deleted_at IS NULL
			) AS c
			LEFT JOIN (
				SELECT org_id, entity_id, impressions, clicks, spend_amount, conversions, conversion_value
				FROM "%s"."%s" FINAL
				WHERE metric_date = toDate(?)
			) AS m ON m.org_id = c.org_id AND m.entity_id = c.id
			GROUP BY c.org_id
			HAVING sum(m.spend_amount) > 0 OR countDistinct(c.id) > 0
		`,
			db.Name, shardmodels.OrgDailySummariesTableName,
			platform,
			db.Name, entities.Campaigns.TableName(platform),
			db.Name, entities.CampaignMetrics.TableName(platform),
		)

		if err := db.Exec(ctx, query, dateStr, dateStr); err != nil {
			return fmt.Errorf("org daily summary %s: %w", platform, err)
		}
	}

	// Connector events fold in as synthetic platforms named after the source.
	// Only success-status events count as conversions; the value sum is the
	// verified revenue side that org_timeseries later picks up as total_revenue.
	for _, source := range entities.Sources() {
		statusList := quotedList(entities.SuccessStatuses(source))
		query := fmt.Sprintf(`
			INSERT INTO "%s"."%s" (
				org_id, platform, metric_date, campaigns_count,
				impressions, clicks, spend, conversions, conversion_value,
				ctr, cpc, cpm, roas, cpa
			)
			SELECT
				org_id,
				'%s' AS platform,
				toDate(?) AS metric_date,
				0 AS campaigns_count,
				0 AS impressions,
				0 AS clicks,
				0 AS spend,
				countIf(status IN (%s)) AS conversions,
				sumIf(value, status IN (%s)) AS conversion_value,
				0 AS ctr,
				0 AS cpc,
				0 AS cpm,
				0 AS roas,
				0 AS cpa
			FROM "%s"."%s" FINAL
			WHERE source = '%s' AND toDate(transacted_at) = toDate(?)
			GROUP BY org_id
		`,
			db.Name, shardmodels.OrgDailySummariesTableName,
			source,
			statusList,
			statusList,
			db.Name, shardmodels.ConnectorEventsTableName,
			source,
		)

		if err := db.Exec(ctx, query, dateStr, dateStr); err != nil {
			return fmt.Errorf("org daily summary %s: %w", source, err)
		}
	}

	return nil
}

// AggregateCampaignPeriods computes the per-campaign rollup for each trailing
// window (7/30/90 days) ending at the target date, one statement per
// ad platform x window. budget_utilization_pct compares spend against
// budget_amount x window days for daily budgets and is 0 for lifetime or zero
// budgets.
func (db *DB) AggregateCampaignPeriods(ctx context.Context, date time.Time) error {
	dateStr := date.Format(time.DateOnly)

	for _, periodDays := range shardmodels.PeriodDays {
		startStr := date.AddDate(0, 0, -(periodDays - 1)).Format(time.DateOnly)

		for _, platform := range entities.AdPlatforms() {
			query := fmt.Sprintf(`
				INSERT INTO "%s"."%s" (
					org_id, platform, campaign_id, campaign_name, period_days,
					period_start, period_end,
					impressions, clicks, spend, conversions, conversion_value,
					ctr, cpc, cpm, roas, cpa, budget_utilization_pct
				)
				SELECT
					c.org_id AS org_id,
					'%s' AS platform,
					c.campaign_id AS campaign_id,
					c.name AS campaign_name,
					%d AS period_days,
					toDate(?) AS period_start,
					toDate(?) AS period_end,
					sum(m.impressions) AS impressions,
					sum(m.clicks) AS clicks,
					sum(m.spend_amount) AS spend,
					sum(m.conversions) AS conversions,
					sum(m.conversion_value) AS conversion_value,
					if(sum(m.impressions) > 0, sum(m.clicks) / sum(m.impressions), 0) AS ctr,
					if(sum(m.clicks) > 0, intDiv(sum(m.spend_amount), sum(m.clicks)), 0) AS cpc,
					if(sum(m.impressions) > 0, intDiv(sum(m.spend_amount) * 1000, sum(m.impressions)), 0) AS cpm,
					if(sum(m.spend_amount) > 0, sum(m.conversion_value) / sum(m.spend_amount), 0) AS roas,
					if(sum(m.conversions) > 0, intDiv(sum(m.spend_amount), sum(m.conversions)), 0) AS cpa,
					if(c.budget_type = '%s' AND c.budget_amount > 0,
						sum(m.spend_amount) / (c.budget_amount * %d) * 100,
						0) AS budget_utilization_pct
				FROM (
					SELECT id, org_id, campaign_id, name, budget_amount, budget_type
					FROM "%s"."%s" FINAL
					WHERE deleted_at IS NULL
				) AS c
				LEFT JOIN (
					SELECT org_id, entity_id, impressions, clicks, spend_amount, conversions, conversion_value
					FROM "%s"."%s" FINAL
					WHERE metric_date >= toDate(?) AND metric_date <= toDate(?)
				) AS m ON m.org_id = c.org_id AND m.entity_id = c.id
				GROUP BY c.org_id, c.campaign_id, c.name, c.budget_type, c.budget_amount
			`,
				db.Name, shardmodels.CampaignPeriodSummariesTableName,
				platform,
				periodDays,
				shardmodels.BudgetTypeDaily,
				periodDays,
				db.Name, entities.Campaigns.TableName(platform),
				db.Name, entities.CampaignMetrics.TableName(platform),
			)

			if err := db.Exec(ctx, query, startStr, dateStr, startStr, dateStr); err != nil {
				return fmt.Errorf("campaign period summary %s %dd: %w", platform, periodDays, err)
			}
		}
	}

	return nil
}

// AggregatePlatformComparisons pivots the just-written org_daily_summaries
// rows over each trailing window into one side-by-side row per org. Connector
// pseudo-platform rows are excluded by the platform IN filter; totals and
// blended ratios therefore cover ad platforms only.
func (db *DB) AggregatePlatformComparisons(ctx context.Context, date time.Time) error {
	dateStr := date.Format(time.DateOnly)
	platformList := quotedList(entities.AdPlatformStrings())

	// Per-platform pivot columns, in model column order.
	var insertCols []string
	var selectExprs []string
	for _, p := range entities.AdPlatformStrings() {
		cond := fmt.Sprintf("platform = '%s'", p)
		insertCols = append(insertCols,
			p+"_impressions", p+"_clicks", p+"_spend", p+"_conversions", p+"_conversion_value", p+"_roas")
		selectExprs = append(selectExprs,
			fmt.Sprintf("sumIf(impressions, %s) AS %s_impressions", cond, p),
			fmt.Sprintf("sumIf(clicks, %s) AS %s_clicks", cond, p),
			fmt.Sprintf("sumIf(spend, %s) AS %s_spend", cond, p),
			fmt.Sprintf("sumIf(conversions, %s) AS %s_conversions", cond, p),
			fmt.Sprintf("sumIf(conversion_value, %s) AS %s_conversion_value", cond, p),
			fmt.Sprintf("if(sumIf(spend, %s) > 0, sumIf(conversion_value, %s) / sumIf(spend, %s), 0) AS %s_roas", cond, cond, cond, p),
		)
	}

	for _, periodDays := range shardmodels.PeriodDays {
		startStr := date.AddDate(0, 0, -(periodDays - 1)).Format(time.DateOnly)

		query := fmt.Sprintf(`
			INSERT INTO "%s"."%s" (
				org_id, period_days, comparison_date,
				%s,
				total_impressions, total_clicks, total_spend, total_conversions, total_conversion_value,
				blended_roas, blended_ctr, blended_cpc
			)
			SELECT
				org_id,
				%d AS period_days,
				toDate(?) AS comparison_date,
				%s,
				sum(impressions) AS total_impressions,
				sum(clicks) AS total_clicks,
				sum(spend) AS total_spend,
				sum(conversions) AS total_conversions,
				sum(conversion_value) AS total_conversion_value,
				if(sum(spend) > 0, sum(conversion_value) / sum(spend), 0) AS blended_roas,
				if(sum(impressions) > 0, sum(clicks) / sum(impressions), 0) AS blended_ctr,
				if(sum(clicks) > 0, intDiv(sum(spend), sum(clicks)), 0) AS blended_cpc
			FROM "%s"."%s" FINAL
			WHERE metric_date >= toDate(?) AND metric_date <= toDate(?)
				AND platform IN (%s)
			GROUP BY org_id
		`,
			db.Name, shardmodels.PlatformComparisonsTableName,
			strings.Join(insertCols, ", "),
			periodDays,
			strings.Join(selectExprs, ",\n\t\t\t\t"),
			db.Name, shardmodels.OrgDailySummariesTableName,
			platformList,
		)

		if err := db.Exec(ctx, query, dateStr, startStr, dateStr); err != nil {
			return fmt.Errorf("platform comparison %dd: %w", periodDays, err)
		}
	}

	return nil
}

// AggregateOrgTimeseries writes one blended point per org for the target date.
// Ad platform rows blend into impressions/clicks/spend/conversions/
// conversion_value; connector pseudo-platform value lands in total_revenue
// only, so claimed ad value and verified revenue never mix.
func (db *DB) AggregateOrgTimeseries(ctx context.Context, date time.Time) error {
	dateStr := date.Format(time.DateOnly)
	platformList := quotedList(entities.AdPlatformStrings())

	query := fmt.Sprintf(`
		INSERT INTO "%s"."%s" (
			org_id, metric_date, impressions, clicks, spend,
			conversions, conversion_value, total_revenue
		)
		SELECT
			org_id,
			toDate(?) AS metric_date,
			sumIf(impressions, platform IN (%s)) AS impressions,
			sumIf(clicks, platform IN (%s)) AS clicks,
			sumIf(spend, platform IN (%s)) AS spend,
			sumIf(conversions, platform IN (%s)) AS conversions,
			sumIf(conversion_value, platform IN (%s)) AS conversion_value,
			sumIf(conversion_value, platform NOT IN (%s)) AS total_revenue
		FROM "%s"."%s" FINAL
		WHERE metric_date = toDate(?)
		GROUP BY org_id
	`,
		db.Name, shardmodels.OrgTimeseriesTableName,
		platformList, platformList, platformList, platformList, platformList, platformList,
		db.Name, shardmodels.OrgDailySummariesTableName,
	)

	if err := db.Exec(ctx, query, dateStr, dateStr); err != nil {
		return fmt.Errorf("org timeseries: %w", err)
	}

	return nil
}

// RecordAggregationRuns upserts the tracking row for every org that received
// a daily summary row for the date. last_run_at doubles as the
// ReplacingMergeTree version column, so the newest run always wins.
func (db *DB) RecordAggregationRuns(ctx context.Context, date time.Time, runAt time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."%s" (org_id, last_run_at, last_success_at)
		SELECT org_id, ? AS last_run_at, ? AS last_success_at
		FROM "%s"."%s" FINAL
		WHERE metric_date = toDate(?)
		GROUP BY org_id
	`,
		db.Name, shardmodels.AggregationRunsTableName,
		db.Name, shardmodels.OrgDailySummariesTableName,
	)

	if err := db.Exec(ctx, query, runAt, runAt, date.Format(time.DateOnly)); err != nil {
		return fmt.Errorf("record aggregation runs: %w", err)
	}

	return nil
}
