package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap/zaptest"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	"github.com/spendwise-io/spendx/pkg/db/entities"
	registrymodels "github.com/spendwise-io/spendx/pkg/db/models/registry"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
	"github.com/spendwise-io/spendx/pkg/db/shard"
	"github.com/spendwise-io/spendx/pkg/migrator/activity"
	"github.com/spendwise-io/spendx/pkg/migrator/types"
)

func newWorkflowEnv(t *testing.T, reg *wfFakeRegistry, src *wfFakeSource, store *wfFakeShardStore) (*testsuite.TestWorkflowEnvironment, Context) {
	t.Helper()

	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	shardsMap := xsync.NewMap[int, shard.Store]()
	shardsMap.Store(store.index, shard.Store(store))

	activityCtx := &activity.Context{
		Logger:     zaptest.NewLogger(t),
		RegistryDB: reg,
		ShardsDB:   shardsMap,
		SourceDB:   src,
	}
	wfCtx := Context{ActivityContext: activityCtx}

	env.RegisterWorkflow(wfCtx.MigrateOrganizationWorkflow)
	env.RegisterActivity(activityCtx.MigrateOrganization)
	return env, wfCtx
}

func TestMigrateOrganizationWorkflowHappyPath(t *testing.T) {
	reg := &wfFakeRegistry{org: &registrymodels.Organization{OrgID: "org-7", ShardIndex: 1}}
	src := &wfFakeSource{rows: 7, table: "google_campaigns"}
	store := &wfFakeShardStore{index: 1}

	env, wfCtx := newWorkflowEnv(t, reg, src, store)
	env.ExecuteWorkflow(wfCtx.MigrateOrganizationWorkflow, types.MigrationJobInput{OrgID: "org-7"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out types.MigrationResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.True(t, out.Success)
	require.Equal(t, "org-7", out.OrgID)
	require.Equal(t, 1, out.ShardIndex)
	require.Equal(t, uint64(7), out.RowsMigrated)
	require.Equal(t, 1, reg.markCalls)
	require.Equal(t, 1, store.insertCalls)
}

func TestMigrateOrganizationWorkflowSurfacesTableErrors(t *testing.T) {
	reg := &wfFakeRegistry{org: &registrymodels.Organization{OrgID: "org-7", ShardIndex: 0}}
	src := &wfFakeSource{failTable: "tiktok_campaigns"}
	store := &wfFakeShardStore{index: 0}

	env, wfCtx := newWorkflowEnv(t, reg, src, store)
	env.ExecuteWorkflow(wfCtx.MigrateOrganizationWorkflow, types.MigrationJobInput{OrgID: "org-7"})

	// A failed table copy is data in the result, not a workflow error.
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out types.MigrationResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.False(t, out.Success)
	require.Len(t, out.Errors, 1)
	require.Contains(t, out.Errors[0], "tiktok/tiktok_campaigns:")
	require.Equal(t, 0, reg.markCalls)
}

type wfFakeRegistry struct {
	org       *registrymodels.Organization
	markCalls int
}

func (f *wfFakeRegistry) Close() error                 { return nil }
func (f *wfFakeRegistry) DatabaseName() string         { return "spendx_registry_test" }
func (f *wfFakeRegistry) GetConnection() driver.Conn   { return nil }
func (f *wfFakeRegistry) GetClient() clickhouse.Client { return clickhouse.Client{} }

func (f *wfFakeRegistry) UpsertOrganization(context.Context, *registrymodels.Organization) error {
	return nil
}

func (f *wfFakeRegistry) GetOrganization(context.Context, string) (*registrymodels.Organization, error) {
	return f.org, nil
}

func (f *wfFakeRegistry) ListOrganizations(context.Context) ([]registrymodels.Organization, error) {
	return nil, nil
}

func (f *wfFakeRegistry) GetUnmigratedOrganizations(context.Context, int) ([]registrymodels.Organization, error) {
	return nil, nil
}

func (f *wfFakeRegistry) ShardFor(context.Context, string) (int, error) {
	return int(f.org.ShardIndex), nil
}

func (f *wfFakeRegistry) IsMigrated(context.Context, string) (bool, error) {
	return f.org.IsMigrated(), nil
}

func (f *wfFakeRegistry) MarkMigrated(context.Context, string, uint32, uint64) error {
	f.markCalls++
	return nil
}

func (f *wfFakeRegistry) StartMigrationProgress(context.Context, string, string, string) error {
	return nil
}

func (f *wfFakeRegistry) CompleteMigrationProgress(context.Context, string, string, string, uint64) error {
	return nil
}

func (f *wfFakeRegistry) FailMigrationProgress(context.Context, string, string, string, uint64, string) error {
	return nil
}

func (f *wfFakeRegistry) GetMigrationStatus(context.Context, string) ([]registrymodels.MigrationProgress, error) {
	return nil, nil
}

// wfFakeSource serves a single page of rows for one table and empty pages for
// every other.
type wfFakeSource struct {
	table     string
	rows      int
	failTable string
}

func (f *wfFakeSource) DatabaseName() string { return "spendwise_production_test" }
func (f *wfFakeSource) Close() error         { return nil }

func (f *wfFakeSource) FetchPage(_ context.Context, table string, columns []string, _ string, afterID string, _ int) ([][]interface{}, string, error) {
	if table == f.failTable {
		return nil, "", errors.New("relation does not exist")
	}
	if table != f.table || afterID != "" {
		return nil, afterID, nil
	}

	page := make([][]interface{}, 0, f.rows)
	cursor := ""
	for i := 0; i < f.rows; i++ {
		cursor = fmt.Sprintf("%s-%d", table, i)
		row := make([]interface{}, len(columns))
		for c := range columns {
			row[c] = cursor
		}
		page = append(page, row)
	}
	return page, cursor, nil
}

type wfFakeShardStore struct {
	index       int
	insertCalls int
}

func (f *wfFakeShardStore) ShardIndex() int            { return f.index }
func (f *wfFakeShardStore) DatabaseName() string       { return "spendx_shard_test" }
func (f *wfFakeShardStore) GetConnection() driver.Conn { return nil }

func (f *wfFakeShardStore) InitializeDB(context.Context) error { return nil }

func (f *wfFakeShardStore) InsertRows(context.Context, string, []string, [][]interface{}) error {
	f.insertCalls++
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

func (f *wfFakeShardStore) AggregateOrgDaily(context.Context, time.Time) error            { return nil }
func (f *wfFakeShardStore) AggregateCampaignPeriods(context.Context, time.Time) error     { return nil }
func (f *wfFakeShardStore) AggregatePlatformComparisons(context.Context, time.Time) error { return nil }
func (f *wfFakeShardStore) AggregateOrgTimeseries(context.Context, time.Time) error       { return nil }

func (f *wfFakeShardStore) RecordAggregationRuns(context.Context, time.Time, time.Time) error {
	return nil
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

func (f *wfFakeShardStore) Select(context.Context, interface{}, string, ...any) error {
	return nil
}

func (f *wfFakeShardStore) Close() error { return nil }
