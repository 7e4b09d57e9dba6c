package revenue

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// initConnectorEvents creates the connector_events table. Same schema as the
// per-shard copies; the central store is the one place revenue for all orgs
// can be rolled up without visiting every shard.
// Table: ReplacingMergeTree(updated_at) ORDER BY (org_id, id)
func (db *DB) initConnectorEvents(ctx context.Context) error {
	schemaSQL := shardmodels.ColumnsToSchemaSQL(shardmodels.ConnectorEventColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (org_id, id)
	`, db.Name, shardmodels.ConnectorEventsTableName, schemaSQL)
	return db.Db.Exec(ctx, query)
}

// InsertConnectorEvents inserts revenue events reported by commerce connectors.
// Keyed on (org_id, id): replaying an event updates it in place.
func (db *DB) InsertConnectorEvents(ctx context.Context, events []*shardmodels.ConnectorEvent) error {
	if len(events) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (id, org_id, source, status, value, customer_external_id, transacted_at, payload, updated_at) VALUES`,
		db.Name, shardmodels.ConnectorEventsTableName,
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	now := time.Now()
	for _, event := range events {
		if event.UpdatedAt.IsZero() {
			event.UpdatedAt = now
		}
		err = batch.Append(
			event.ID,
			event.OrgID,
			event.Source,
			event.Status,
			event.Value,
			event.CustomerExternalID,
			event.TransactedAt,
			event.Payload,
			event.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}
