package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	revenuemodels "github.com/spendwise-io/spendx/pkg/db/models/revenue"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
	"github.com/spendwise-io/spendx/pkg/redis"
)

func eventMessage(t *testing.T, id string) redis.Message {
	t.Helper()

	data, err := json.Marshal(shardmodels.ConnectorEvent{
		ID:           id,
		OrgID:        "org-1",
		Source:       "shopify",
		Status:       "paid",
		Value:        4999,
		TransactedAt: time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	return redis.Message{
		ID:     id + "-0",
		Stream: redis.ConnectorEventsStream,
		Values: map[string]interface{}{"data": string(data)},
	}
}

func TestRevenueIngestBatchesBySize(t *testing.T) {
	store := &ingestFakeRevenueStore{}
	ri := newRevenueIngest(zaptest.NewLogger(t), store)
	ctx := context.Background()

	for i := 0; i < ingestBatchSize; i++ {
		require.NoError(t, ri.Handle(ctx, eventMessage(t, fmt.Sprintf("evt-%d", i))))
	}

	require.Equal(t, 1, store.insertCalls)
	require.Equal(t, ingestBatchSize, store.lastBatchLen)
	require.Equal(t, 0, ri.Buffered())
}

func TestRevenueIngestFlushWritesPartialBatch(t *testing.T) {
	store := &ingestFakeRevenueStore{}
	ri := newRevenueIngest(zaptest.NewLogger(t), store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, ri.Handle(ctx, eventMessage(t, fmt.Sprintf("evt-%d", i))))
	}
	require.Equal(t, 0, store.insertCalls)
	require.Equal(t, 3, ri.Buffered())

	ri.Flush(ctx)
	require.Equal(t, 1, store.insertCalls)
	require.Equal(t, 3, store.lastBatchLen)
	require.Equal(t, 0, ri.Buffered())
}

func TestRevenueIngestSkipsMalformed(t *testing.T) {
	store := &ingestFakeRevenueStore{}
	ri := newRevenueIngest(zaptest.NewLogger(t), store)
	ctx := context.Background()

	// No data field at all.
	require.NoError(t, ri.Handle(ctx, redis.Message{ID: "a-0", Values: map[string]interface{}{}}))
	// Data that is not JSON.
	require.NoError(t, ri.Handle(ctx, redis.Message{ID: "b-0", Values: map[string]interface{}{"data": "not json"}}))
	// Valid JSON missing the org id.
	require.NoError(t, ri.Handle(ctx, redis.Message{ID: "c-0", Values: map[string]interface{}{"data": `{"id":"evt-1"}`}}))

	ri.Flush(ctx)
	require.Equal(t, 0, store.insertCalls)
	require.Equal(t, 0, ri.Buffered())
}

func TestRevenueIngestKeepsBatchOnInsertFailure(t *testing.T) {
	store := &ingestFakeRevenueStore{failInserts: true}
	ri := newRevenueIngest(zaptest.NewLogger(t), store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, ri.Handle(ctx, eventMessage(t, fmt.Sprintf("evt-%d", i))))
	}

	ri.Flush(ctx)
	require.Equal(t, 1, store.insertCalls)
	require.Equal(t, 5, ri.Buffered())

	// Once the store recovers, the same events go out on the next flush.
	store.failInserts = false
	ri.Flush(ctx)
	require.Equal(t, 2, store.insertCalls)
	require.Equal(t, 5, store.lastBatchLen)
	require.Equal(t, 0, ri.Buffered())
}

type ingestFakeRevenueStore struct {
	failInserts  bool
	insertCalls  int
	lastBatchLen int
}

func (f *ingestFakeRevenueStore) DatabaseName() string       { return "spendx_revenue_test" }
func (f *ingestFakeRevenueStore) GetConnection() driver.Conn { return nil }
func (f *ingestFakeRevenueStore) Close() error               { return nil }

func (f *ingestFakeRevenueStore) InsertConnectorEvents(_ context.Context, events []*shardmodels.ConnectorEvent) error {
	f.insertCalls++
	if f.failInserts {
		return errors.New("clickhouse is down")
	}
	f.lastBatchLen = len(events)
	return nil
}

func (f *ingestFakeRevenueStore) RollupConnectorRevenue(context.Context, time.Time) error {
	return nil
}

func (f *ingestFakeRevenueStore) GetConnectorRevenueDaily(context.Context, string, time.Time, time.Time) ([]revenuemodels.ConnectorRevenueDaily, error) {
	return nil, nil
}
