package registry

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	registrymodels "github.com/spendwise-io/spendx/pkg/db/models/registry"
)

// Store exposes the subset of registry database operations used by activities and workflows.
type Store interface {
	Close() error
	DatabaseName() string
	GetConnection() driver.Conn
	GetClient() clickhouse.Client

	// --- Organizations

	UpsertOrganization(ctx context.Context, org *registrymodels.Organization) error
	GetOrganization(ctx context.Context, orgID string) (*registrymodels.Organization, error)
	ListOrganizations(ctx context.Context) ([]registrymodels.Organization, error)
	GetUnmigratedOrganizations(ctx context.Context, limit int) ([]registrymodels.Organization, error)

	// --- Routing (fail closed: unknown or unassigned orgs are errors, never shard 0)

	ShardFor(ctx context.Context, orgID string) (int, error)
	IsMigrated(ctx context.Context, orgID string) (bool, error)
	MarkMigrated(ctx context.Context, orgID string, tablesMigrated uint32, rowsMigrated uint64) error

	// --- Backfill progress records

	StartMigrationProgress(ctx context.Context, orgID, platform, tableName string) error
	CompleteMigrationProgress(ctx context.Context, orgID, platform, tableName string, rows uint64) error
	FailMigrationProgress(ctx context.Context, orgID, platform, tableName string, rows uint64, errMsg string) error
	GetMigrationStatus(ctx context.Context, orgID string) ([]registrymodels.MigrationProgress, error)
}
