package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	registrymodels "github.com/spendwise-io/spendx/pkg/db/models/registry"
)

// initMigrationProgress creates the migration_progress table using raw SQL.
// Table: ReplacingMergeTree(updated_at) ORDER BY (org_id, platform, table_name)
func (db *DB) initMigrationProgress(ctx context.Context) error {
	schemaSQL := registrymodels.ColumnsToSchemaSQL(registrymodels.MigrationProgressColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (org_id, platform, table_name)
	`, db.Name, registrymodels.MigrationProgressTableName, schemaSQL)
	return db.Db.Exec(ctx, query)
}

// StartMigrationProgress records the start of one table's copy. Written before
// the first page goes across, so a crash leaves a visible started-not-completed
// row. Re-running a table overwrites the prior record.
func (db *DB) StartMigrationProgress(ctx context.Context, orgID, platform, tableName string) error {
	now := time.Now()
	return db.insertMigrationProgress(ctx, &registrymodels.MigrationProgress{
		OrgID:     orgID,
		Platform:  platform,
		TableName: tableName,
		StartedAt: now,
		UpdatedAt: now,
	})
}

// CompleteMigrationProgress marks one table's copy as finished with its final
// row count. Preserves started_at from the start record.
func (db *DB) CompleteMigrationProgress(ctx context.Context, orgID, platform, tableName string, rows uint64) error {
	progress, err := db.getMigrationProgress(ctx, orgID, platform, tableName)
	if err != nil {
		return err
	}

	now := time.Now()
	progress.RowsMigrated = rows
	progress.CompletedAt = &now
	progress.Error = ""
	progress.UpdatedAt = now

	return db.insertMigrationProgress(ctx, progress)
}

// FailMigrationProgress records a table copy failure with the partial row
// count already written. completed_at stays null so the table is retried on
// the next run.
func (db *DB) FailMigrationProgress(ctx context.Context, orgID, platform, tableName string, rows uint64, errMsg string) error {
	progress, err := db.getMigrationProgress(ctx, orgID, platform, tableName)
	if err != nil {
		return err
	}

	now := time.Now()
	progress.RowsMigrated = rows
	progress.CompletedAt = nil
	progress.Error = errMsg
	progress.UpdatedAt = now

	return db.insertMigrationProgress(ctx, progress)
}

// GetMigrationStatus returns the latest (deduped) progress row per table for
// the given org.
func (db *DB) GetMigrationStatus(ctx context.Context, orgID string) ([]registrymodels.MigrationProgress, error) {
	query := fmt.Sprintf(`
		SELECT
			org_id, platform, table_name, rows_migrated,
			started_at, completed_at, error, updated_at
		FROM "%s"."%s" FINAL
		WHERE org_id = ?
		ORDER BY platform, table_name
	`, db.Name, registrymodels.MigrationProgressTableName)

	var out []registrymodels.MigrationProgress
	if err := db.Select(ctx, &out, query, orgID); err != nil {
		return nil, err
	}

	return out, nil
}

// getMigrationProgress returns the latest record for one org x platform x
// table, or a fresh one if no start record survives.
func (db *DB) getMigrationProgress(ctx context.Context, orgID, platform, tableName string) (*registrymodels.MigrationProgress, error) {
	query := fmt.Sprintf(`
		SELECT
			org_id, platform, table_name, rows_migrated,
			started_at, completed_at, error, updated_at
		FROM "%s"."%s" FINAL
		WHERE org_id = ? AND platform = ? AND table_name = ?
		LIMIT 1
	`, db.Name, registrymodels.MigrationProgressTableName)

	var progress registrymodels.MigrationProgress
	err := db.Db.QueryRow(ctx, query, orgID, platform, tableName).Scan(
		&progress.OrgID,
		&progress.Platform,
		&progress.TableName,
		&progress.RowsMigrated,
		&progress.StartedAt,
		&progress.CompletedAt,
		&progress.Error,
		&progress.UpdatedAt,
	)
	if err != nil {
		if clickhouse.IsNoRows(err) {
			now := time.Now()
			return &registrymodels.MigrationProgress{
				OrgID:     orgID,
				Platform:  platform,
				TableName: tableName,
				StartedAt: now,
				UpdatedAt: now,
			}, nil
		}
		return nil, fmt.Errorf("migration progress %s/%s/%s: %w", orgID, platform, tableName, err)
	}

	return &progress, nil
}

// insertMigrationProgress inserts a progress record.
// ReplacingMergeTree will handle deduplication based on updated_at.
func (db *DB) insertMigrationProgress(ctx context.Context, p *registrymodels.MigrationProgress) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."%s" (
			org_id, platform, table_name, rows_migrated,
			started_at, completed_at, error, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, db.Name, registrymodels.MigrationProgressTableName)

	return db.Db.Exec(ctx, query,
		p.OrgID,
		p.Platform,
		p.TableName,
		p.RowsMigrated,
		p.StartedAt,
		p.CompletedAt,
		p.Error,
		p.UpdatedAt,
	)
}
