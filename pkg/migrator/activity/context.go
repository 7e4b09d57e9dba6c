package activity

import (
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/spendwise-io/spendx/pkg/db/postgres/source"
	"github.com/spendwise-io/spendx/pkg/db/registry"
	"github.com/spendwise-io/spendx/pkg/db/shard"
	"github.com/spendwise-io/spendx/pkg/redis"
)

// Context carries the dependencies of the migration activities.
type Context struct {
	Logger *zap.Logger

	// Tenant registry, for shard placement and progress bookkeeping
	RegistryDB registry.Store

	// Active shard databases, keyed by shard index
	ShardsDB *xsync.Map[int, shard.Store]

	// Read side of the legacy monolith being drained
	SourceDB source.Store

	// For publishing completion events. A nil client publishes nothing.
	RedisClient *redis.Client
}
