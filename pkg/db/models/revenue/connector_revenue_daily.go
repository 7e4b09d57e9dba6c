package revenue

import (
	"time"
)

const ConnectorRevenueDailyTableName = "connector_revenue_daily"

// ConnectorRevenueDailyColumns defines the schema for connector_revenue_daily.
// Version-less ReplacingMergeTree keyed on (org_id, source, event_date), same
// idempotent re-run property as the shard rollups.
var ConnectorRevenueDailyColumns = []ColumnDef{
	{Name: "org_id", Type: "String"},
	{Name: "source", Type: "String"},
	{Name: "event_date", Type: "Date"},
	{Name: "events", Type: "UInt64"},
	{Name: "conversions", Type: "UInt64"},
	{Name: "revenue", Type: "Int64"},
}

// ConnectorRevenueDaily is one org x source x day revenue rollup row in the
// central revenue store. conversions and revenue count success-status events
// only; events counts everything ingested.
type ConnectorRevenueDaily struct {
	OrgID     string    `ch:"org_id" json:"org_id"`
	Source    string    `ch:"source" json:"source"`
	EventDate time.Time `ch:"event_date" json:"event_date"` // Date (not DateTime)

	Events      uint64 `ch:"events" json:"events"`
	Conversions uint64 `ch:"conversions" json:"conversions"`
	Revenue     int64  `ch:"revenue" json:"revenue"` // Minor units
}
