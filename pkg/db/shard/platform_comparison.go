package shard

import (
	"context"
	"fmt"
	"time"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// initPlatformComparisons creates the side-by-side platform pivot table.
// Table: ReplacingMergeTree ORDER BY (org_id, period_days, comparison_date)
func (db *DB) initPlatformComparisons(ctx context.Context) error {
	schemaSQL := shardmodels.ColumnsToSchemaSQL(shardmodels.PlatformComparisonColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY (org_id, period_days, comparison_date)
	`, db.Name, shardmodels.PlatformComparisonsTableName, schemaSQL, clickhouse.Engine(clickhouse.ReplacingMergeTree, ""))
	return db.Exec(ctx, query)
}

// GetPlatformComparison returns the latest (deduped) pivot row for one org,
// window length and comparison date.
func (db *DB) GetPlatformComparison(ctx context.Context, orgID string, periodDays int, date time.Time) (*shardmodels.PlatformComparison, error) {
	query := fmt.Sprintf(`
		SELECT *
		FROM "%s"."%s" FINAL
		WHERE org_id = ? AND period_days = ? AND comparison_date = toDate(?)
		LIMIT 1
	`, db.Name, shardmodels.PlatformComparisonsTableName)

	var pc shardmodels.PlatformComparison
	err := db.Db.QueryRow(ctx, query, orgID, uint16(periodDays), date.Format(time.DateOnly)).ScanStruct(&pc)
	if err != nil {
		if clickhouse.IsNoRows(err) {
			return nil, fmt.Errorf("platform comparison %s/%dd/%s not found: %w", orgID, periodDays, date.Format(time.DateOnly), err)
		}
		return nil, err
	}

	return &pc, nil
}
