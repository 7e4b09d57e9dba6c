package shard

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	"github.com/spendwise-io/spendx/pkg/db/entities"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// Shard store tests run against a real ClickHouse (CLICKHOUSE_ADDR). They are
// gated behind CLICKHOUSE_TEST so a plain `go test ./...` stays green without
// infrastructure. Shard indexes live in the 9xxx range to keep test databases
// apart from any real shard_0..shard_N fleet on the same server.

var testDay = time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

// createTestShard creates a shard store for testing with automatic cleanup.
func createTestShard(t *testing.T, index int) *DB {
	t.Helper()

	if os.Getenv("CLICKHOUSE_TEST") == "" {
		t.Skip("set CLICKHOUSE_TEST to run ClickHouse-backed shard store tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := zaptest.NewLogger(t)
	shardDB, err := NewWithPoolConfig(ctx, logger, index, clickhouse.PoolConfig{
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Second,
		Component:       "shard_test",
	})
	require.NoError(t, err, "failed to create shard store")

	// Drop the database while the connection is still open, then close.
	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dropCancel()

		if err := shardDB.Exec(dropCtx, fmt.Sprintf(`DROP DATABASE IF EXISTS "%s"`, shardDB.Name)); err != nil {
			t.Logf("failed to drop database %s: %v", shardDB.Name, err)
		}
		if err := shardDB.Close(); err != nil {
			t.Logf("failed to close shard store: %v", err)
		}
	})

	return shardDB
}

func testCampaign(orgID, id string, budget int64, budgetType string) *shardmodels.Campaign {
	return &shardmodels.Campaign{
		ID:           id,
		OrgID:        orgID,
		CampaignID:   "ext-" + id,
		Name:         "Campaign " + id,
		Status:       "active",
		BudgetAmount: budget,
		BudgetType:   budgetType,
	}
}

func testMetric(orgID, entityID string, day time.Time, impressions, clicks uint64, spend int64, conversions uint64, value int64) *shardmodels.MetricRow {
	return &shardmodels.MetricRow{
		ID:              fmt.Sprintf("%s:%s", entityID, day.Format(time.DateOnly)),
		OrgID:           orgID,
		EntityID:        entityID,
		MetricDate:      day,
		Impressions:     impressions,
		Clicks:          clicks,
		SpendAmount:     spend,
		Conversions:     conversions,
		ConversionValue: value,
	}
}

func TestShardStore_AggregateOrgDaily(t *testing.T) {
	db := createTestShard(t, 9101)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, db.UpsertCampaigns(ctx, entities.Google, []*shardmodels.Campaign{
		testCampaign("org-a", "c1", 0, shardmodels.BudgetTypeDaily),
		testCampaign("org-a", "c2", 0, shardmodels.BudgetTypeDaily),
	}))
	require.NoError(t, db.UpsertMetrics(ctx, entities.Google, entities.CampaignMetrics, []*shardmodels.MetricRow{
		testMetric("org-a", "c1", testDay, 1000, 50, 2500, 10, 10000),
		testMetric("org-a", "c2", testDay, 1000, 50, 2500, 10, 10000),
	}))

	require.NoError(t, db.AggregateOrgDaily(ctx, testDay))

	rows, err := db.GetOrgDailySummaries(ctx, "org-a", testDay)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "google", row.Platform)
	assert.Equal(t, uint32(2), row.CampaignsCount)
	assert.Equal(t, uint64(2000), row.Impressions)
	assert.Equal(t, uint64(100), row.Clicks)
	assert.Equal(t, int64(5000), row.Spend)
	assert.Equal(t, uint64(20), row.Conversions)
	assert.Equal(t, int64(20000), row.ConversionValue)
	assert.Equal(t, 0.05, row.CTR)
	assert.Equal(t, int64(50), row.CPC)
	assert.Equal(t, int64(2500), row.CPM)
	assert.Equal(t, 4.0, row.ROAS)
	assert.Equal(t, int64(250), row.CPA)
}

// Re-running the rollup over unchanged input writes byte-identical rows, which
// the version-less ReplacingMergeTree collapses back to one row per key.
func TestShardStore_AggregateOrgDailyRerunIsIdempotent(t *testing.T) {
	db := createTestShard(t, 9102)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, db.UpsertCampaigns(ctx, entities.Google, []*shardmodels.Campaign{
		testCampaign("org-a", "c1", 0, shardmodels.BudgetTypeDaily),
	}))
	require.NoError(t, db.UpsertMetrics(ctx, entities.Google, entities.CampaignMetrics, []*shardmodels.MetricRow{
		testMetric("org-a", "c1", testDay, 100, 10, 500, 1, 800),
	}))

	require.NoError(t, db.AggregateOrgDaily(ctx, testDay))
	first, err := db.GetOrgDailySummaries(ctx, "org-a", testDay)
	require.NoError(t, err)

	require.NoError(t, db.AggregateOrgDaily(ctx, testDay))
	second, err := db.GetOrgDailySummaries(ctx, "org-a", testDay)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	var count uint64
	countQuery := fmt.Sprintf(
		`SELECT count() FROM "%s"."%s" FINAL WHERE org_id = ?`,
		db.Name, shardmodels.OrgDailySummariesTableName,
	)
	require.NoError(t, db.QueryRow(ctx, countQuery, "org-a").Scan(&count))
	assert.Equal(t, uint64(1), count, "re-run must not duplicate rows")
}

// A campaign whose metrics never moved still gets a row; every ratio must come
// back exactly zero instead of NaN or a division error.
func TestShardStore_AggregateOrgDailyZeroDenominators(t *testing.T) {
	db := createTestShard(t, 9103)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, db.UpsertCampaigns(ctx, entities.Google, []*shardmodels.Campaign{
		testCampaign("org-a", "c1", 0, shardmodels.BudgetTypeDaily),
	}))
	// No metric rows at all: the LEFT JOIN contributes zeros.

	require.NoError(t, db.AggregateOrgDaily(ctx, testDay))

	rows, err := db.GetOrgDailySummaries(ctx, "org-a", testDay)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, uint32(1), row.CampaignsCount)
	assert.Zero(t, row.Impressions)
	assert.Zero(t, row.Spend)
	assert.Zero(t, row.CTR)
	assert.Zero(t, row.CPC)
	assert.Zero(t, row.CPM)
	assert.Zero(t, row.ROAS)
	assert.Zero(t, row.CPA)
}

// Soft-deleted campaigns disappear from the rollup, and the rollup total must
// equal the raw metric total of the surviving campaigns.
func TestShardStore_AggregateOrgDailyExcludesDeletedCampaigns(t *testing.T) {
	db := createTestShard(t, 9104)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deletedAt := testDay.Add(-24 * time.Hour)
	deleted := testCampaign("org-a", "c2", 0, shardmodels.BudgetTypeDaily)
	deleted.DeletedAt = &deletedAt

	require.NoError(t, db.UpsertCampaigns(ctx, entities.Google, []*shardmodels.Campaign{
		testCampaign("org-a", "c1", 0, shardmodels.BudgetTypeDaily),
		deleted,
	}))
	require.NoError(t, db.UpsertMetrics(ctx, entities.Google, entities.CampaignMetrics, []*shardmodels.MetricRow{
		testMetric("org-a", "c1", testDay, 10, 1, 100, 0, 0),
		testMetric("org-a", "c2", testDay, 90, 9, 900, 0, 0),
	}))

	require.NoError(t, db.AggregateOrgDaily(ctx, testDay))

	rows, err := db.GetOrgDailySummaries(ctx, "org-a", testDay)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint32(1), rows[0].CampaignsCount)
	assert.Equal(t, int64(100), rows[0].Spend)

	// Rollup total == raw total over non-deleted campaigns.
	var rawSpend int64
	rawQuery := fmt.Sprintf(`
		SELECT sum(m.spend_amount)
		FROM (SELECT id, org_id FROM "%s"."%s" FINAL WHERE deleted_at IS NULL) AS c
		INNER JOIN (SELECT org_id, entity_id, spend_amount FROM "%s"."%s" FINAL WHERE metric_date = toDate(?)) AS m
			ON m.org_id = c.org_id AND m.entity_id = c.id
	`,
		db.Name, entities.Campaigns.TableName(entities.Google),
		db.Name, entities.CampaignMetrics.TableName(entities.Google),
	)
	require.NoError(t, db.QueryRow(ctx, rawQuery, testDay.Format(time.DateOnly)).Scan(&rawSpend))
	assert.Equal(t, rawSpend, rows[0].Spend)
}

// Connector events land as synthetic platforms: only success-status events
// count, ad columns stay zero.
func TestShardStore_AggregateOrgDailyFoldsConnectorEvents(t *testing.T) {
	db := createTestShard(t, 9105)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	transactedAt := testDay.Add(12 * time.Hour)
	require.NoError(t, db.InsertConnectorEvents(ctx, []*shardmodels.ConnectorEvent{
		{ID: "e1", OrgID: "org-a", Source: "shopify", Status: "paid", Value: 5000, TransactedAt: transactedAt},
		{ID: "e2", OrgID: "org-a", Source: "shopify", Status: "partially_paid", Value: 1000, TransactedAt: transactedAt},
		{ID: "e3", OrgID: "org-a", Source: "shopify", Status: "refunded", Value: 700, TransactedAt: transactedAt},
		{ID: "e4", OrgID: "org-a", Source: "shopify", Status: "pending", Value: 300, TransactedAt: transactedAt},
	}))

	require.NoError(t, db.AggregateOrgDaily(ctx, testDay))

	rows, err := db.GetOrgDailySummaries(ctx, "org-a", testDay)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "shopify", row.Platform)
	assert.Zero(t, row.CampaignsCount)
	assert.Zero(t, row.Impressions)
	assert.Zero(t, row.Spend)
	assert.Equal(t, uint64(2), row.Conversions, "paid + partially_paid only")
	assert.Equal(t, int64(6000), row.ConversionValue)
}

func TestShardStore_AggregateCampaignPeriods(t *testing.T) {
	db := createTestShard(t, 9106)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, db.UpsertCampaigns(ctx, entities.Google, []*shardmodels.Campaign{
		testCampaign("org-a", "c1", 1000, shardmodels.BudgetTypeDaily),
		testCampaign("org-a", "c2", 99999, shardmodels.BudgetTypeLifetime),
	}))
	require.NoError(t, db.UpsertMetrics(ctx, entities.Google, entities.CampaignMetrics, []*shardmodels.MetricRow{
		testMetric("org-a", "c1", testDay, 100, 10, 3000, 2, 9000),
		testMetric("org-a", "c1", testDay.AddDate(0, 0, -6), 0, 0, 4000, 0, 0),
		// One day outside the 7d window but inside 30d.
		testMetric("org-a", "c1", testDay.AddDate(0, 0, -7), 0, 0, 50000, 0, 0),
		testMetric("org-a", "c2", testDay, 0, 0, 500, 0, 0),
	}))

	require.NoError(t, db.AggregateCampaignPeriods(ctx, testDay))

	weekly, err := db.GetCampaignPeriodSummaries(ctx, "org-a", 7)
	require.NoError(t, err)
	require.Len(t, weekly, 2)

	byID := make(map[string]shardmodels.CampaignPeriodSummary, len(weekly))
	for _, s := range weekly {
		byID[s.CampaignID] = s
	}

	c1 := byID["ext-c1"]
	assert.Equal(t, int64(7000), c1.Spend)
	assert.Equal(t, uint16(7), c1.PeriodDays)
	assert.Equal(t, 100.0, c1.BudgetUtilizationPct, "7000 spent of a 1000/day budget over 7 days")

	c2 := byID["ext-c2"]
	assert.Equal(t, int64(500), c2.Spend)
	assert.Zero(t, c2.BudgetUtilizationPct, "lifetime budgets have no window to utilize")

	monthly, err := db.GetCampaignPeriodSummaries(ctx, "org-a", 30)
	require.NoError(t, err)
	byID = make(map[string]shardmodels.CampaignPeriodSummary, len(monthly))
	for _, s := range monthly {
		byID[s.CampaignID] = s
	}
	assert.Equal(t, int64(57000), byID["ext-c1"].Spend)
	assert.Equal(t, 190.0, byID["ext-c1"].BudgetUtilizationPct)
}

// Full pipeline over two ad platforms plus a connector source: the comparison
// pivots ad platforms side by side, the timeseries blends them, and connector
// value shows up only as total_revenue.
func TestShardStore_ComparisonTimeseriesAndRuns(t *testing.T) {
	db := createTestShard(t, 9107)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.NoError(t, db.UpsertCampaigns(ctx, entities.Google, []*shardmodels.Campaign{
		testCampaign("org-a", "g1", 0, shardmodels.BudgetTypeDaily),
	}))
	require.NoError(t, db.UpsertMetrics(ctx, entities.Google, entities.CampaignMetrics, []*shardmodels.MetricRow{
		testMetric("org-a", "g1", testDay, 1000, 100, 2000, 5, 8000),
	}))
	require.NoError(t, db.UpsertCampaigns(ctx, entities.Facebook, []*shardmodels.Campaign{
		testCampaign("org-a", "f1", 0, shardmodels.BudgetTypeDaily),
	}))
	require.NoError(t, db.UpsertMetrics(ctx, entities.Facebook, entities.CampaignMetrics, []*shardmodels.MetricRow{
		testMetric("org-a", "f1", testDay, 500, 10, 1000, 1, 1000),
	}))
	require.NoError(t, db.InsertConnectorEvents(ctx, []*shardmodels.ConnectorEvent{
		{ID: "e1", OrgID: "org-a", Source: "shopify", Status: "paid", Value: 3000, TransactedAt: testDay.Add(12 * time.Hour)},
	}))

	runAt := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, db.AggregateOrgDaily(ctx, testDay))
	require.NoError(t, db.AggregateCampaignPeriods(ctx, testDay))
	require.NoError(t, db.AggregatePlatformComparisons(ctx, testDay))
	require.NoError(t, db.AggregateOrgTimeseries(ctx, testDay))
	require.NoError(t, db.RecordAggregationRuns(ctx, testDay, runAt))

	comparison, err := db.GetPlatformComparison(ctx, "org-a", 7, testDay)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), comparison.GoogleSpend)
	assert.Equal(t, int64(1000), comparison.FacebookSpend)
	assert.Zero(t, comparison.TiktokSpend)
	assert.Equal(t, int64(3000), comparison.TotalSpend)
	assert.Equal(t, int64(9000), comparison.TotalConversionValue, "connector value stays out of ad totals")
	assert.Equal(t, 3.0, comparison.BlendedROAS)
	assert.InDelta(t, 110.0/1500.0, comparison.BlendedCTR, 1e-9)
	assert.Equal(t, int64(27), comparison.BlendedCPC)
	assert.Equal(t, 4.0, comparison.GoogleROAS)
	assert.Equal(t, 1.0, comparison.FacebookROAS)
	assert.Zero(t, comparison.TiktokROAS)

	points, err := db.GetOrgTimeseries(ctx, "org-a", testDay, testDay)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, uint64(1500), points[0].Impressions)
	assert.Equal(t, uint64(110), points[0].Clicks)
	assert.Equal(t, int64(3000), points[0].Spend)
	assert.Equal(t, uint64(6), points[0].Conversions)
	assert.Equal(t, int64(9000), points[0].ConversionValue)
	assert.Equal(t, int64(3000), points[0].TotalRevenue)

	run, err := db.GetAggregationRun(ctx, "org-a")
	require.NoError(t, err)
	assert.WithinDuration(t, runAt, run.LastRunAt, time.Second)
	assert.WithinDuration(t, runAt, run.LastSuccessAt, time.Second)

	_, err = db.GetPlatformComparison(ctx, "missing-org", 7, testDay)
	require.Error(t, err)
}

// InsertRows is the backfill write path: pre-shaped value rows keyed to the
// shared column list.
func TestShardStore_InsertRows(t *testing.T) {
	db := createTestShard(t, 9108)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	columns := shardmodels.ColumnsToNameList(TableColumns(entities.Campaigns))
	now := time.Now().UTC().Truncate(time.Millisecond)
	rows := [][]interface{}{
		{"row-1", "org-a", "ext-1", "Copied campaign", "active", int64(100), shardmodels.BudgetTypeDaily, `{"source":"legacy"}`, nil, now, now},
		{"row-2", "org-a", "ext-2", "Another", "paused", int64(250), shardmodels.BudgetTypeLifetime, "{}", nil, now, now},
	}

	table := entities.Campaigns.TableName(entities.Google)
	require.NoError(t, db.InsertRows(ctx, table, columns, rows))
	require.NoError(t, db.InsertRows(ctx, table, columns, nil), "empty page is a no-op")

	var count uint64
	countQuery := fmt.Sprintf(`SELECT count() FROM "%s"."%s" FINAL WHERE org_id = ?`, db.Name, table)
	require.NoError(t, db.QueryRow(ctx, countQuery, "org-a").Scan(&count))
	assert.Equal(t, uint64(2), count)

	// Re-sending the same page must replace, not duplicate.
	require.NoError(t, db.InsertRows(ctx, table, columns, rows))
	require.NoError(t, db.QueryRow(ctx, countQuery, "org-a").Scan(&count))
	assert.Equal(t, uint64(2), count)
}

func TestShardStore_UpsertValidation(t *testing.T) {
	db := &DB{Name: "shard_0"}
	ctx := context.Background()

	err := db.UpsertCampaigns(ctx, entities.Platform("bing"), []*shardmodels.Campaign{testCampaign("o", "c", 0, shardmodels.BudgetTypeDaily)})
	require.Error(t, err)

	err = db.UpsertMetrics(ctx, entities.Google, entities.Campaigns, []*shardmodels.MetricRow{testMetric("o", "c", testDay, 0, 0, 0, 0, 0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a metrics table")

	// Empty slices never touch the connection.
	require.NoError(t, db.UpsertCampaigns(ctx, entities.Google, nil))
	require.NoError(t, db.UpsertMetrics(ctx, entities.Google, entities.CampaignMetrics, nil))
	require.NoError(t, db.InsertConnectorEvents(ctx, nil))
}
