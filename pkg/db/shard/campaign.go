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

// initCampaigns creates one campaign table per ad platform.
// Tables: ReplacingMergeTree(updated_at) ORDER BY (org_id, id)
func (db *DB) initCampaigns(ctx context.Context) error {
	schemaSQL := shardmodels.ColumnsToSchemaSQL(shardmodels.CampaignColumns)

	for _, platform := range entities.AdPlatforms() {
		tableName := entities.Campaigns.TableName(platform)
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

// UpsertCampaigns inserts campaign rows into the platform's campaign table.
// ReplacingMergeTree keyed on (org_id, id) dedups by the latest updated_at, so
// every write is an insert-or-replace.
func (db *DB) UpsertCampaigns(ctx context.Context, platform entities.Platform, campaigns []*shardmodels.Campaign) error {
	if !platform.IsValid() {
		return fmt.Errorf("invalid platform: %q", platform)
	}
	if len(campaigns) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, org_id, campaign_id, name, status, budget_amount, budget_type, payload, deleted_at, created_at, updated_at) VALUES`,
		db.Name, entities.Campaigns.TableName(platform),
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	now := time.Now()
	for _, campaign := range campaigns {
		if campaign.CreatedAt.IsZero() {
			campaign.CreatedAt = now
		}
		if campaign.UpdatedAt.IsZero() {
			campaign.UpdatedAt = now
		}
		err = batch.Append(
			campaign.ID,
			campaign.OrgID,
			campaign.CampaignID,
			campaign.Name,
			campaign.Status,
			campaign.BudgetAmount,
			campaign.BudgetType,
			campaign.Payload,
			campaign.DeletedAt,
			campaign.CreatedAt,
			campaign.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}
