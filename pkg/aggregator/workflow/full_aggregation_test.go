package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap/zaptest"

	"github.com/spendwise-io/spendx/pkg/aggregator/activity"
	"github.com/spendwise-io/spendx/pkg/aggregator/types"
	"github.com/spendwise-io/spendx/pkg/db/entities"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
	"github.com/spendwise-io/spendx/pkg/db/shard"
)

func TestFullAggregationWorkflowHappyPath(t *testing.T) {
	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	shard0 := &wfFakeShardStore{index: 0}
	shard1 := &wfFakeShardStore{index: 1}
	shardsMap := xsync.NewMap[int, shard.Store]()
	shardsMap.Store(0, shard.Store(shard0))
	shardsMap.Store(1, shard.Store(shard1))

	activityCtx := &activity.Context{
		Logger:   zaptest.NewLogger(t),
		ShardsDB: shardsMap,
	}
	wfCtx := Context{ActivityContext: activityCtx}

	env.RegisterWorkflow(wfCtx.FullAggregationWorkflow)
	env.RegisterActivity(activityCtx.RunFullAggregation)

	env.ExecuteWorkflow(wfCtx.FullAggregationWorkflow, types.AggregationJobInput{Date: "2025-08-15"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out types.AggregationJobResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "2025-08-15", out.Date)
	require.True(t, out.Success)
	require.Len(t, out.Shards, 2)
	require.Equal(t, 5, shard0.aggregateCalls)
	require.Equal(t, 5, shard1.aggregateCalls)
}

func TestFullAggregationWorkflowSurfacesShardErrors(t *testing.T) {
	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	shard0 := &wfFakeShardStore{index: 0, fail: true}
	shardsMap := xsync.NewMap[int, shard.Store]()
	shardsMap.Store(0, shard.Store(shard0))

	activityCtx := &activity.Context{
		Logger:   zaptest.NewLogger(t),
		ShardsDB: shardsMap,
	}
	wfCtx := Context{ActivityContext: activityCtx}

	env.RegisterWorkflow(wfCtx.FullAggregationWorkflow)
	env.RegisterActivity(activityCtx.RunFullAggregation)

	env.ExecuteWorkflow(wfCtx.FullAggregationWorkflow, types.AggregationJobInput{Date: "2025-08-15"})

	// A failed shard is data in the result, not a workflow error.
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out types.AggregationJobResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.False(t, out.Success)
	require.Len(t, out.Errors, 1)
	require.Contains(t, out.Errors[0], "shard 0:")
}

type wfFakeShardStore struct {
	index          int
	fail           bool
	aggregateCalls int
}

func (f *wfFakeShardStore) ShardIndex() int            { return f.index }
func (f *wfFakeShardStore) DatabaseName() string       { return "spendx_shard_test" }
func (f *wfFakeShardStore) GetConnection() driver.Conn { return nil }

func (f *wfFakeShardStore) InitializeDB(context.Context) error { return nil }

func (f *wfFakeShardStore) InsertRows(context.Context, string, []string, [][]interface{}) error {
	return nil
}

func (f *wfFakeShardStore) UpsertCampaigns(context.Context, entities.Platform, []*shardmodels.Campaign) error {
	return nil
}

func (f *wfFakeShardStore) UpsertAdGroups(context.Context, entities.Platform, []*shardmodels.AdGroup) error {
	return nil
}

func (f *wfFakeShardStore) UpsertAds(context.Context, entities.Platform, []*shardmodels.Ad) error {
	return nil
}

func (f *wfFakeShardStore) UpsertMetrics(context.Context, entities.Platform, entities.Entity, []*shardmodels.MetricRow) error {
	return nil
}

func (f *wfFakeShardStore) InsertConnectorEvents(context.Context, []*shardmodels.ConnectorEvent) error {
	return nil
}

func (f *wfFakeShardStore) aggregate() error {
	f.aggregateCalls++
	if f.fail {
		return errors.New("org daily summary google: connection refused")
	}
	return nil
}

func (f *wfFakeShardStore) AggregateOrgDaily(context.Context, time.Time) error { return f.aggregate() }

func (f *wfFakeShardStore) AggregateCampaignPeriods(context.Context, time.Time) error {
	return f.aggregate()
}

func (f *wfFakeShardStore) AggregatePlatformComparisons(context.Context, time.Time) error {
	return f.aggregate()
}

func (f *wfFakeShardStore) AggregateOrgTimeseries(context.Context, time.Time) error {
	return f.aggregate()
}

func (f *wfFakeShardStore) RecordAggregationRuns(context.Context, time.Time, time.Time) error {
	return f.aggregate()
}

func (f *wfFakeShardStore) GetOrgDailySummaries(context.Context, string, time.Time) ([]shardmodels.OrgDailySummary, error) {
	return nil, nil
}

func (f *wfFakeShardStore) GetCampaignPeriodSummaries(context.Context, string, int) ([]shardmodels.CampaignPeriodSummary, error) {
	return nil, nil
}

func (f *wfFakeShardStore) GetPlatformComparison(context.Context, string, int, time.Time) (*shardmodels.PlatformComparison, error) {
	return nil, nil
}

func (f *wfFakeShardStore) GetOrgTimeseries(context.Context, string, time.Time, time.Time) ([]shardmodels.OrgTimeseries, error) {
	return nil, nil
}

func (f *wfFakeShardStore) GetAggregationRun(context.Context, string) (*shardmodels.AggregationRun, error) {
	return nil, nil
}

func (f *wfFakeShardStore) Exec(context.Context, string, ...any) error { return nil }

func (f *wfFakeShardStore) Select(context.Context, interface{}, string, ...any) error { return nil }

func (f *wfFakeShardStore) Close() error { return nil }
