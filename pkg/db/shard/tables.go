package shard

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/spendwise-io/spendx/pkg/db/entities"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// TableColumns returns the column set for the given entity's per-platform
// tables. The backfill copy loop drives both its source SELECT and its shard
// INSERT from this one list, so source and destination can never disagree on
// column order.
func TableColumns(entity entities.Entity) []shardmodels.ColumnDef {
	switch entity {
	case entities.Campaigns:
		return shardmodels.CampaignColumns
	case entities.AdGroups:
		return shardmodels.AdGroupColumns
	case entities.Ads:
		return shardmodels.AdColumns
	case entities.CampaignMetrics, entities.AdGroupMetrics, entities.AdMetrics:
		return shardmodels.MetricColumns
	default:
		return nil
	}
}

// InsertRows writes pre-shaped value rows into the named table. Values must
// line up with the columns list. Batches are insert-or-replace like every
// other write here, so re-sending a page after a crash is safe.
func (db *DB) InsertRows(ctx context.Context, table string, columns []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (%s) VALUES`,
		db.Name, table, strings.Join(columns, ", "),
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, row := range rows {
		if err = batch.Append(row...); err != nil {
			return err
		}
	}

	return batch.Send()
}
