package activity

import (
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/spendwise-io/spendx/pkg/db/revenue"
	"github.com/spendwise-io/spendx/pkg/db/shard"
	"github.com/spendwise-io/spendx/pkg/redis"
)

type Context struct {
	Logger *zap.Logger
	// Per-shard analytical DBs, keyed by shard index
	ShardsDB *xsync.Map[int, shard.Store]
	// Cross-tenant connector revenue store; nil when REVENUE_DB is not configured
	RevenueDB revenue.Store
	// For publishing completion events (nil when Redis is not configured)
	RedisClient *redis.Client
	// AggregationMaxParallelism allows overriding the default shard pool size.
	AggregationMaxParallelism int
	shardPoolOnce             sync.Once
	shardPool                 pond.Pool
	shardPoolSize             int
}

// shardBatchPool returns a shared worker pool for per-shard pipeline runs.
// Pool size defaults to one worker per shard of the standard layout but can
// be overridden.
func (c *Context) shardBatchPool(batchSize int) pond.Pool {
	c.shardPoolOnce.Do(func() {
		maxWorkers := AggregationParallelism(c.AggregationMaxParallelism)
		c.shardPoolSize = maxWorkers
		queueSize := max(batchSize, maxWorkers)
		c.shardPool = pond.NewPool(
			maxWorkers,
			pond.WithQueueSize(queueSize),
		)
	})

	return c.shardPool
}

// ShardPoolSize exposes the configured pool size for logging purposes.
func (c *Context) ShardPoolSize() int {
	if c.shardPoolSize != 0 {
		return c.shardPoolSize
	}
	return AggregationParallelism(c.AggregationMaxParallelism)
}

// AggregationParallelism calculates how many shard pipelines run concurrently.
// Each worker drives one shard's INSERT-SELECT sequence, so anything beyond
// the shard count idles; the cap guards against runaway overrides.
func AggregationParallelism(override int) int {
	if override > 0 {
		if override > 64 {
			return 64
		}
		return override
	}

	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	if n > 4 {
		// Matches the standard four-shard layout.
		n = 4
	}
	return n
}
