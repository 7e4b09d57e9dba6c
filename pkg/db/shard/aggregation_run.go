package shard

import (
	"context"
	"fmt"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// initAggregationRuns creates the per-org job tracking table.
// Table: ReplacingMergeTree(last_run_at) ORDER BY (org_id)
func (db *DB) initAggregationRuns(ctx context.Context) error {
	schemaSQL := shardmodels.ColumnsToSchemaSQL(shardmodels.AggregationRunColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY (org_id)
	`, db.Name, shardmodels.AggregationRunsTableName, schemaSQL, clickhouse.Engine(clickhouse.ReplacingMergeTree, "last_run_at"))
	return db.Exec(ctx, query)
}

// GetAggregationRun returns the latest tracking row for one org.
func (db *DB) GetAggregationRun(ctx context.Context, orgID string) (*shardmodels.AggregationRun, error) {
	query := fmt.Sprintf(`
		SELECT org_id, last_run_at, last_success_at
		FROM "%s"."%s" FINAL
		WHERE org_id = ?
		LIMIT 1
	`, db.Name, shardmodels.AggregationRunsTableName)

	var run shardmodels.AggregationRun
	err := db.Db.QueryRow(ctx, query, orgID).Scan(
		&run.OrgID,
		&run.LastRunAt,
		&run.LastSuccessAt,
	)
	if err != nil {
		// normalize "no rows" into a friendly error
		return nil, fmt.Errorf("aggregation run for %s not found: %w", orgID, err)
	}

	return &run, nil
}
