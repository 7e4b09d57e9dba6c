package shard

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	"github.com/spendwise-io/spendx/pkg/db/entities"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// initMetricTables creates one metric table per ad platform for the given
// entity level. All six metric tables share the same schema; the entity level
// is encoded by table identity.
// Tables: ReplacingMergeTree(updated_at) ORDER BY (org_id, entity_id, metric_date)
func (db *DB) initMetricTables(ctx context.Context, entity entities.Entity) error {
	schemaSQL := shardmodels.ColumnsToSchemaSQL(shardmodels.MetricColumns)

	for _, platform := range entities.AdPlatforms() {
		tableName := entity.TableName(platform)
		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS "%s"."%s" (
				%s
			) ENGINE = %s
			ORDER BY (org_id, entity_id, metric_date)
		`, db.Name, tableName, schemaSQL, clickhouse.Engine(clickhouse.ReplacingMergeTree, "updated_at"))
		if err := db.Exec(ctx, query); err != nil {
			return fmt.Errorf("create %s: %w", tableName, err)
		}
	}

	return nil
}

func (db *DB) initCampaignMetrics(ctx context.Context) error {
	return db.initMetricTables(ctx, entities.CampaignMetrics)
}

func (db *DB) initAdGroupMetrics(ctx context.Context) error {
	return db.initMetricTables(ctx, entities.AdGroupMetrics)
}

func (db *DB) initAdMetrics(ctx context.Context) error {
	return db.initMetricTables(ctx, entities.AdMetrics)
}

// UpsertMetrics inserts daily metric rows for one entity level of one platform.
// ReplacingMergeTree keyed on (org_id, entity_id, metric_date) replaces the
// day on re-insert, so re-sending a window never double counts.
func (db *DB) UpsertMetrics(ctx context.Context, platform entities.Platform, entity entities.Entity, rows []*shardmodels.MetricRow) error {
	if !platform.IsValid() {
		return fmt.Errorf("invalid platform: %q", platform)
	}
	if !entity.IsMetrics() {
		return fmt.Errorf("entity %q is not a metrics table", entity)
	}
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, org_id, entity_id, metric_date, impressions, clicks, spend_amount, conversions, conversion_value, updated_at) VALUES`,
		db.Name, entity.TableName(platform),
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	now := time.Now()
	for _, row := range rows {
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = now
		}
		err = batch.Append(
			row.ID,
			row.OrgID,
			row.EntityID,
			row.MetricDate,
			row.Impressions,
			row.Clicks,
			row.SpendAmount,
			row.Conversions,
			row.ConversionValue,
			row.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}
