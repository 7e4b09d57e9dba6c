package shard

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/spendwise-io/spendx/pkg/db/entities"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// Store describes the per-shard database operations required by the
// aggregation and migration activities.
type Store interface {
	DatabaseName() string
	ShardIndex() int
	GetConnection() driver.Conn

	// --- Init

	InitializeDB(ctx context.Context) error

	// --- Backfill writes (column-driven, used by the migration copy loop)

	InsertRows(ctx context.Context, table string, columns []string, rows [][]interface{}) error

	// --- Insert-or-replace writers for live ingestion

	UpsertCampaigns(ctx context.Context, platform entities.Platform, campaigns []*shardmodels.Campaign) error
	UpsertAdGroups(ctx context.Context, platform entities.Platform, adGroups []*shardmodels.AdGroup) error
	UpsertAds(ctx context.Context, platform entities.Platform, ads []*shardmodels.Ad) error
	UpsertMetrics(ctx context.Context, platform entities.Platform, entity entities.Entity, rows []*shardmodels.MetricRow) error
	InsertConnectorEvents(ctx context.Context, events []*shardmodels.ConnectorEvent) error

	// --- Aggregation pipeline steps, in execution order for one target date.
	//     The caller stops the shard at the first failing step.

	AggregateOrgDaily(ctx context.Context, date time.Time) error
	AggregateCampaignPeriods(ctx context.Context, date time.Time) error
	AggregatePlatformComparisons(ctx context.Context, date time.Time) error
	AggregateOrgTimeseries(ctx context.Context, date time.Time) error
	RecordAggregationRuns(ctx context.Context, date time.Time, runAt time.Time) error

	// --- Rollup reads (FINAL-deduped)

	GetOrgDailySummaries(ctx context.Context, orgID string, date time.Time) ([]shardmodels.OrgDailySummary, error)
	GetCampaignPeriodSummaries(ctx context.Context, orgID string, periodDays int) ([]shardmodels.CampaignPeriodSummary, error)
	GetPlatformComparison(ctx context.Context, orgID string, periodDays int, date time.Time) (*shardmodels.PlatformComparison, error)
	GetOrgTimeseries(ctx context.Context, orgID string, from, to time.Time) ([]shardmodels.OrgTimeseries, error)
	GetAggregationRun(ctx context.Context, orgID string) (*shardmodels.AggregationRun, error)

	// --- Meta / Help queries

	Exec(ctx context.Context, query string, args ...any) error
	Select(ctx context.Context, dest interface{}, query string, args ...any) error
	Close() error
}
