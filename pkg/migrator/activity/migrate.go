package activity

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/spendwise-io/spendx/pkg/db/entities"
	registrymodels "github.com/spendwise-io/spendx/pkg/db/models/registry"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
	"github.com/spendwise-io/spendx/pkg/db/shard"
	"github.com/spendwise-io/spendx/pkg/migrator/types"
	"github.com/spendwise-io/spendx/pkg/redis"
)

const (
	// fetchPageSize is the keyset page size read from the legacy store.
	fetchPageSize = 10000

	// insertBatchSize is the number of rows per shard insert. Shard inserts
	// send one batch per call, so the copy loop slices pages down itself.
	insertBatchSize = 100
)

// MigrateOrganization copies every table of one tenant out of the legacy
// monolith into the tenant's shard. A table failure is recorded as
// "<platform>/<table>: <err>" in the result and aborts the rest of that
// platform's tables; the other platforms still run. The activity itself only
// errs when the org cannot be resolved to a shard at all, so a half-failed
// copy still reports the rows it moved.
//
// Re-running is safe: rows are keyed upserts on the shard side and the org is
// only marked migrated after a clean run, so a retry re-copies failed tables
// without duplicating the ones that succeeded.
func (c *Context) MigrateOrganization(ctx context.Context, in types.MigrationJobInput) (*types.MigrationResult, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()

	if in.OrgID == "" {
		return nil, temporal.NewApplicationError("org id is required", "invalid_input")
	}

	org, err := c.RegistryDB.GetOrganization(ctx, in.OrgID)
	if err != nil {
		return nil, temporal.NewApplicationErrorWithCause("unable to resolve organization", "registry_error", err)
	}

	result := &types.MigrationResult{OrgID: in.OrgID}

	if org.IsMigrated() {
		logger.Info("Organization already migrated, skipping",
			zap.String("org_id", in.OrgID),
			zap.Uint32("tables_migrated", org.TablesMigrated),
			zap.Uint64("rows_migrated", org.RowsMigrated))
		result.ShardIndex = int(org.ShardIndex)
		result.TablesMigrated = org.TablesMigrated
		result.RowsMigrated = org.RowsMigrated
		result.Success = true
		return result, nil
	}

	shardIdx, err := c.RegistryDB.ShardFor(ctx, in.OrgID)
	if err != nil {
		return nil, temporal.NewApplicationErrorWithCause("unable to resolve shard", "routing_error", err)
	}
	store, ok := c.ShardsDB.Load(shardIdx)
	if !ok {
		return nil, temporal.NewApplicationError(fmt.Sprintf("no shard store for index %d", shardIdx), "routing_error")
	}
	result.ShardIndex = shardIdx

	logger.Info("Starting organization migration",
		zap.String("org_id", in.OrgID),
		zap.Int("shard", shardIdx))

	platforms := entities.AdPlatforms()
	allEntities := entities.All()
	totalTables := len(platforms)*entities.Count() + 1 // +1 for connector events

	for p, platform := range platforms {
		for e, entity := range allEntities {
			tableNum := p*entities.Count() + e + 1
			table := entity.TableName(platform)
			columns := shardmodels.ColumnsToNameList(shard.TableColumns(entity))

			rows, copyErr := c.copyProgressTable(ctx, store, in.OrgID, platform.String(), table, columns, tableNum, totalTables)
			result.RowsMigrated += rows
			if copyErr != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %s", platform, table, copyErr))
				// Abort the rest of this platform's tables; the others still run.
				break
			}
			result.TablesMigrated++
		}
	}

	// Connector events ride behind the ad platforms, under their own progress key.
	connectorColumns := shardmodels.ColumnsToNameList(shardmodels.ConnectorEventColumns)
	rows, copyErr := c.copyProgressTable(ctx, store, in.OrgID, registrymodels.ProgressPlatformConnector,
		shardmodels.ConnectorEventsTableName, connectorColumns, totalTables, totalTables)
	result.RowsMigrated += rows
	if copyErr != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s/%s: %s", registrymodels.ProgressPlatformConnector, shardmodels.ConnectorEventsTableName, copyErr))
	} else {
		result.TablesMigrated++
	}

	if len(result.Errors) == 0 {
		if markErr := c.RegistryDB.MarkMigrated(ctx, in.OrgID, result.TablesMigrated, result.RowsMigrated); markErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("mark migrated: %s", markErr))
		}
	}
	result.Success = len(result.Errors) == 0
	result.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0

	c.RedisClient.PublishCompletion(ctx, redis.MigrationCompletedChannel, types.MigrationCompletedEvent{
		Event:          redis.MigrationCompletedChannel,
		OrgID:          in.OrgID,
		ShardIndex:     shardIdx,
		Success:        result.Success,
		TablesMigrated: result.TablesMigrated,
		RowsMigrated:   result.RowsMigrated,
		Errors:         result.Errors,
		Timestamp:      time.Now().UTC(),
	})

	logger.Info("Organization migration finished",
		zap.String("org_id", in.OrgID),
		zap.Int("shard", shardIdx),
		zap.Bool("success", result.Success),
		zap.Uint32("tables_migrated", result.TablesMigrated),
		zap.Uint64("rows_migrated", result.RowsMigrated),
		zap.Int("errors", len(result.Errors)),
		zap.Float64("duration_ms", result.DurationMs))

	return result, nil
}

// copyProgressTable wraps one table copy with registry progress bookkeeping:
// a running record before the copy, completed or failed (with the partial row
// count) after. Returns the rows written either way.
func (c *Context) copyProgressTable(ctx context.Context, store shard.Store, orgID, platform, table string, columns []string, tableNum, totalTables int) (uint64, error) {
	if err := c.RegistryDB.StartMigrationProgress(ctx, orgID, platform, table); err != nil {
		return 0, fmt.Errorf("start progress: %w", err)
	}
	activity.RecordHeartbeat(ctx, fmt.Sprintf("copying_table_%d_of_%d_%s", tableNum, totalTables, table))

	copied, err := c.copyTable(ctx, store, orgID, table, columns)
	if err != nil {
		if failErr := c.RegistryDB.FailMigrationProgress(ctx, orgID, platform, table, copied, err.Error()); failErr != nil {
			c.Logger.Warn("Unable to record migration failure",
				zap.String("org_id", orgID),
				zap.String("table", table),
				zap.Error(failErr))
		}
		return copied, err
	}

	if err := c.RegistryDB.CompleteMigrationProgress(ctx, orgID, platform, table, copied); err != nil {
		return copied, fmt.Errorf("complete progress: %w", err)
	}
	return copied, nil
}

// copyTable streams one tenant's rows from the legacy table into the shard:
// keyset pages on the read side, fixed-size insert batches on the write side.
// Returns the number of rows written, including rows written before a failure.
func (c *Context) copyTable(ctx context.Context, store shard.Store, orgID, table string, columns []string) (uint64, error) {
	var copied uint64
	afterID := ""

	for {
		page, cursor, err := c.SourceDB.FetchPage(ctx, table, columns, orgID, afterID, fetchPageSize)
		if err != nil {
			return copied, fmt.Errorf("fetch page after %q: %w", afterID, err)
		}
		if len(page) == 0 {
			return copied, nil
		}

		for offset := 0; offset < len(page); offset += insertBatchSize {
			batch := page[offset:min(offset+insertBatchSize, len(page))]
			if err := store.InsertRows(ctx, table, columns, batch); err != nil {
				return copied, fmt.Errorf("insert batch at row %d: %w", copied, err)
			}
			copied += uint64(len(batch))
		}

		activity.RecordHeartbeat(ctx, fmt.Sprintf("%s_rows_%d", table, copied))

		if len(page) < fetchPageSize {
			return copied, nil
		}
		afterID = cursor
	}
}
