package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	registrymodels "github.com/spendwise-io/spendx/pkg/db/models/registry"
	"github.com/spendwise-io/spendx/pkg/db/shard"
	"github.com/spendwise-io/spendx/pkg/utils"
)

// initOrganizations creates the organizations table using raw SQL.
// Table: ReplacingMergeTree(updated_at) ORDER BY (org_id)
func (db *DB) initOrganizations(ctx context.Context) error {
	schemaSQL := registrymodels.ColumnsToSchemaSQL(registrymodels.OrganizationColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (org_id)
	`, db.Name, registrymodels.OrganizationsTableName, schemaSQL)
	return db.Db.Exec(ctx, query)
}

// EnsureShardDbs ensures every shard database and its tables exist and returns
// the shard store registry keyed by shard index. Aggregation and migration
// resolve handles through this map via ShardFor; a missing entry is an error,
// never a fallback to shard 0.
func (db *DB) EnsureShardDbs(ctx context.Context, component string) (*xsync.Map[int, shard.Store], error) {
	shardCount := utils.EnvInt("SHARD_COUNT", 4)

	shardDbMap := xsync.NewMap[int, shard.Store]()

	for i := 0; i < shardCount; i++ {
		shardDb, shardDbErr := shard.NewWithPoolConfig(ctx, db.Logger, i, *clickhouse.GetPoolConfigForComponent(component))
		if shardDbErr != nil {
			return nil, shardDbErr
		}
		shardDbMap.Store(i, shardDb)
	}

	return shardDbMap, nil
}

// UpsertOrganization creates or updates an organization in the registry.
func (db *DB) UpsertOrganization(ctx context.Context, org *registrymodels.Organization) error {
	if org.OrgID == "" {
		return fmt.Errorf("org_id is required")
	}
	org.Name = strings.TrimSpace(org.Name)
	if org.ShardIndex < registrymodels.ShardUnassigned {
		return fmt.Errorf("shard_index (%d) must be %d (unassigned) or a non-negative shard index", org.ShardIndex, registrymodels.ShardUnassigned)
	}

	now := time.Now()
	cur, err := db.GetOrganization(ctx, org.OrgID)
	switch {
	case err == nil:
		// Shard placement is immutable once the org is migrated; moving it
		// would strand the already-copied rows in the old shard.
		if cur.IsMigrated() && org.ShardIndex != cur.ShardIndex {
			return fmt.Errorf("organization %s already migrated to shard %d, refusing reassignment to %d", org.OrgID, cur.ShardIndex, org.ShardIndex)
		}
		// Preserve created_at; migration state only moves through MarkMigrated.
		org.CreatedAt = cur.CreatedAt
		org.Migrated = cur.Migrated
		org.MigratedAt = cur.MigratedAt
		org.TablesMigrated = cur.TablesMigrated
		org.RowsMigrated = cur.RowsMigrated
	case clickhouse.IsNoRows(err):
		if org.CreatedAt.IsZero() {
			org.CreatedAt = now
		}
	default:
		return err
	}
	org.UpdatedAt = now

	// Insert (ReplacingMergeTree will treat the same (org_id) as an upsert by latest UpdatedAt)
	return db.InsertOrganization(ctx, org)
}

// InsertOrganization inserts a new organization record.
// ReplacingMergeTree will handle deduplication based on updated_at.
func (db *DB) InsertOrganization(ctx context.Context, org *registrymodels.Organization) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."%s" (
			org_id, name, shard_index, migrated, migrated_at,
			tables_migrated, rows_migrated, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, db.Name, registrymodels.OrganizationsTableName)

	return db.Db.Exec(ctx, query,
		org.OrgID,
		org.Name,
		org.ShardIndex,
		org.Migrated,
		org.MigratedAt,
		org.TablesMigrated,
		org.RowsMigrated,
		org.CreatedAt,
		org.UpdatedAt,
	)
}

// GetOrganization returns the latest (deduped) row for the given org_id.
func (db *DB) GetOrganization(ctx context.Context, orgID string) (*registrymodels.Organization, error) {
	query := fmt.Sprintf(`
		SELECT
			org_id, name, shard_index, migrated, migrated_at,
			tables_migrated, rows_migrated, created_at, updated_at
		FROM "%s"."%s" FINAL
		WHERE org_id = ?
		LIMIT 1
	`, db.Name, registrymodels.OrganizationsTableName)

	var org registrymodels.Organization
	err := db.Db.QueryRow(ctx, query, orgID).Scan(
		&org.OrgID,
		&org.Name,
		&org.ShardIndex,
		&org.Migrated,
		&org.MigratedAt,
		&org.TablesMigrated,
		&org.RowsMigrated,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		// normalize "no rows" into a friendly error
		return nil, fmt.Errorf("organization %s not found: %w", orgID, err)
	}

	return &org, nil
}

// ListOrganizations returns the latest (deduped) row per org_id.
func (db *DB) ListOrganizations(ctx context.Context) ([]registrymodels.Organization, error) {
	query := fmt.Sprintf(`
		SELECT
			org_id, name, shard_index, migrated, migrated_at,
			tables_migrated, rows_migrated, created_at, updated_at
		FROM "%s"."%s" FINAL
		ORDER BY org_id
	`, db.Name, registrymodels.OrganizationsTableName)

	var out []registrymodels.Organization
	if err := db.Select(ctx, &out, query); err != nil {
		return nil, err
	}

	return out, nil
}

// GetUnmigratedOrganizations returns orgs that have a shard assigned but have
// not completed their backfill yet, ordered by org_id. The migrator scan loop
// uses this to pick up onboarding work.
func (db *DB) GetUnmigratedOrganizations(ctx context.Context, limit int) ([]registrymodels.Organization, error) {
	query := fmt.Sprintf(`
		SELECT
			org_id, name, shard_index, migrated, migrated_at,
			tables_migrated, rows_migrated, created_at, updated_at
		FROM "%s"."%s" FINAL
		WHERE migrated = 0 AND shard_index >= 0
		ORDER BY org_id
		LIMIT ?
	`, db.Name, registrymodels.OrganizationsTableName)

	var out []registrymodels.Organization
	if err := db.Select(ctx, &out, query, limit); err != nil {
		return nil, err
	}

	return out, nil
}

// ShardFor resolves the shard index for an org. Fails closed: an unknown org
// or one without an assignment is an error, never shard 0.
func (db *DB) ShardFor(ctx context.Context, orgID string) (int, error) {
	org, err := db.GetOrganization(ctx, orgID)
	if err != nil {
		return 0, err
	}
	if !org.IsAssigned() {
		return 0, fmt.Errorf("organization %s has no shard assigned", orgID)
	}
	return int(org.ShardIndex), nil
}

// IsMigrated reports whether the org's backfill has completed.
func (db *DB) IsMigrated(ctx context.Context, orgID string) (bool, error) {
	org, err := db.GetOrganization(ctx, orgID)
	if err != nil {
		return false, err
	}
	return org.IsMigrated(), nil
}

// MarkMigrated flags the org as migrated and records the audit counters.
// Preserves created_at and the shard assignment; bumps updated_at.
func (db *DB) MarkMigrated(ctx context.Context, orgID string, tablesMigrated uint32, rowsMigrated uint64) error {
	org, err := db.GetOrganization(ctx, orgID)
	if err != nil {
		return err
	}

	now := time.Now()
	org.Migrated = 1
	org.MigratedAt = &now
	org.TablesMigrated = tablesMigrated
	org.RowsMigrated = rowsMigrated
	org.UpdatedAt = now

	return db.InsertOrganization(ctx, org)
}
