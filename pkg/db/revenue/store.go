package revenue

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	revenuemodels "github.com/spendwise-io/spendx/pkg/db/models/revenue"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// Store exposes the subset of revenue database operations used by the event
// consumer, activities and workflows.
type Store interface {
	Close() error
	DatabaseName() string
	GetConnection() driver.Conn

	// --- Event ingestion

	InsertConnectorEvents(ctx context.Context, events []*shardmodels.ConnectorEvent) error

	// --- Daily rollup

	RollupConnectorRevenue(ctx context.Context, date time.Time) error
	GetConnectorRevenueDaily(ctx context.Context, orgID string, from, to time.Time) ([]revenuemodels.ConnectorRevenueDaily, error)
}
