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

// initAds creates one ad table per ad platform.
// Tables: ReplacingMergeTree(updated_at) ORDER BY (org_id, id)
func (db *DB) initAds(ctx context.Context) error {
	schemaSQL := shardmodels.ColumnsToSchemaSQL(shardmodels.AdColumns)

	for _, platform := range entities.AdPlatforms() {
		tableName := entities.Ads.TableName(platform)
		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS "%s"."%s" (
				%s
			) ENGINE = %s
			ORDER BY (org_id, id)
		`, db.Name, tableName, schemaSQL, clickhouse.Engine(clickhouse.ReplacingMergeTree, "updated_at"))
		if err := db.Exec(ctx, query); err != nil {
			return fmt.Errorf("create %s: %w", tableName, err)
		}
	}

	return nil
}

// UpsertAds inserts ad rows into the platform's ad table.
func (db *DB) UpsertAds(ctx context.Context, platform entities.Platform, ads []*shardmodels.Ad) error {
	if !platform.IsValid() {
		return fmt.Errorf("invalid platform: %q", platform)
	}
	if len(ads) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, org_id, ad_group_id, ad_id, name, status, payload, deleted_at, created_at, updated_at) VALUES`,
		db.Name, entities.Ads.TableName(platform),
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	now := time.Now()
	for _, ad := range ads {
		if ad.CreatedAt.IsZero() {
			ad.CreatedAt = now
		}
		if ad.UpdatedAt.IsZero() {
			ad.UpdatedAt = now
		}
		err = batch.Append(
			ad.ID,
			ad.OrgID,
			ad.AdGroupID,
			ad.AdID,
			ad.Name,
			ad.Status,
			ad.Payload,
			ad.DeletedAt,
			ad.CreatedAt,
			ad.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}
