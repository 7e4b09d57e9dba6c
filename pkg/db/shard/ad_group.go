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

// initAdGroups creates one ad group table per ad platform. Facebook's table is
// named facebook_ad_sets; the schema is identical.
// Tables: ReplacingMergeTree(updated_at) ORDER BY (org_id, id)
func (db *DB) initAdGroups(ctx context.Context) error {
	schemaSQL := shardmodels.ColumnsToSchemaSQL(shardmodels.AdGroupColumns)

	for _, platform := range entities.AdPlatforms() {
		tableName := entities.AdGroups.TableName(platform)
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

// UpsertAdGroups inserts ad group rows into the platform's mid-level entity table.
func (db *DB) UpsertAdGroups(ctx context.Context, platform entities.Platform, adGroups []*shardmodels.AdGroup) error {
	if !platform.IsValid() {
		return fmt.Errorf("invalid platform: %q", platform)
	}
	if len(adGroups) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, org_id, campaign_id, ad_group_id, name, status, payload, deleted_at, created_at, updated_at) VALUES`,
		db.Name, entities.AdGroups.TableName(platform),
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	now := time.Now()
	for _, adGroup := range adGroups {
		if adGroup.CreatedAt.IsZero() {
			adGroup.CreatedAt = now
		}
		if adGroup.UpdatedAt.IsZero() {
			adGroup.UpdatedAt = now
		}
		err = batch.Append(
			adGroup.ID,
			adGroup.OrgID,
			adGroup.CampaignID,
			adGroup.AdGroupID,
			adGroup.Name,
			adGroup.Status,
			adGroup.Payload,
			adGroup.DeletedAt,
			adGroup.CreatedAt,
			adGroup.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}
