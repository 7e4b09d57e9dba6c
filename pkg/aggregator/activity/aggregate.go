package activity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/spendwise-io/spendx/pkg/aggregator/types"
	"github.com/spendwise-io/spendx/pkg/db/shard"
	"github.com/spendwise-io/spendx/pkg/redis"
)

// RunFullAggregation executes the rollup pipeline on every shard for one
// target date, then the cross-tenant revenue rollup when that store is
// configured. Shard failures are collected into the result instead of failing
// the activity; the schedule's next tick is the retry.
func (c *Context) RunFullAggregation(ctx context.Context, in types.AggregationJobInput) (*types.AggregationJobResult, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()

	date, err := resolveDate(in.Date)
	if err != nil {
		return nil, temporal.NewApplicationErrorWithCause("invalid aggregation date", "invalid_input", err)
	}
	runAt := start.UTC()

	shardCount := 0
	c.ShardsDB.Range(func(int, shard.Store) bool {
		shardCount++
		return true
	})

	outcomes := xsync.NewMap[int, types.ShardOutcome]()

	pool := c.shardBatchPool(shardCount)
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	c.ShardsDB.Range(func(idx int, store shard.Store) bool {
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				return
			}
			outcomes.Store(idx, c.aggregateShard(groupCtx, store, date, runAt))
		})
		return true
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		logger.Warn("shard aggregation group encountered error",
			zap.String("date", date.Format("2006-01-02")),
			zap.Error(err),
		)
	}

	result := &types.AggregationJobResult{Date: date.Format("2006-01-02")}
	outcomes.Range(func(_ int, outcome types.ShardOutcome) bool {
		result.Shards = append(result.Shards, outcome)
		return true
	})
	sort.Slice(result.Shards, func(i, j int) bool {
		return result.Shards[i].ShardIndex < result.Shards[j].ShardIndex
	})
	for _, outcome := range result.Shards {
		if !outcome.Success {
			result.Errors = append(result.Errors, fmt.Sprintf("shard %d: %s", outcome.ShardIndex, outcome.Error))
		}
	}

	// The revenue rollup runs once per job, not per shard: connector events
	// live in a single cross-tenant database.
	if c.RevenueDB != nil {
		if revErr := c.RevenueDB.RollupConnectorRevenue(ctx, date); revErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("revenue: %s", revErr))
		}
	}

	result.Success = len(result.Errors) == 0
	result.TotalDurationMs = float64(time.Since(start).Microseconds()) / 1000.0

	c.RedisClient.PublishCompletion(ctx, redis.AggregationCompletedChannel, types.AggregationCompletedEvent{
		Event:      redis.AggregationCompletedChannel,
		Date:       result.Date,
		Success:    result.Success,
		Errors:     result.Errors,
		DurationMs: result.TotalDurationMs,
		Timestamp:  time.Now().UTC(),
	})

	logger.Info("Full aggregation completed",
		zap.String("date", result.Date),
		zap.Int("shards", len(result.Shards)),
		zap.Int("errors", len(result.Errors)),
		zap.Bool("success", result.Success),
		zap.Float64("duration_ms", result.TotalDurationMs),
		zap.Int("parallelism", c.ShardPoolSize()),
	)

	return result, nil
}

// aggregateShard runs the pipeline steps for one shard in order, stopping at
// the first failure. Step errors already carry the failing table's context.
func (c *Context) aggregateShard(ctx context.Context, store shard.Store, date, runAt time.Time) types.ShardOutcome {
	start := time.Now()
	outcome := types.ShardOutcome{ShardIndex: store.ShardIndex()}

	steps := []func(context.Context) error{
		func(ctx context.Context) error { return store.AggregateOrgDaily(ctx, date) },
		func(ctx context.Context) error { return store.AggregateCampaignPeriods(ctx, date) },
		func(ctx context.Context) error { return store.AggregatePlatformComparisons(ctx, date) },
		func(ctx context.Context) error { return store.AggregateOrgTimeseries(ctx, date) },
		func(ctx context.Context) error { return store.RecordAggregationRuns(ctx, date, runAt) },
	}

	for _, step := range steps {
		if err := step(ctx); err != nil {
			outcome.Error = err.Error()
			outcome.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
			return outcome
		}
	}

	outcome.Success = true
	outcome.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
	return outcome
}

// resolveDate parses the requested day, defaulting to yesterday: the daily
// schedule fires after midnight UTC to roll up the day that just closed.
func resolveDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return date, nil
}
