package shard

import (
	"time"
)

const OrgTimeseriesTableName = "org_timeseries"

// OrgTimeseriesColumns defines the schema for org_timeseries.
// Version-less ReplacingMergeTree keyed on (org_id, metric_date).
var OrgTimeseriesColumns = []ColumnDef{
	{Name: "org_id", Type: "String"},
	{Name: "metric_date", Type: "Date"},
	{Name: "impressions", Type: "UInt64"},
	{Name: "clicks", Type: "UInt64"},
	{Name: "spend", Type: "Int64"},
	{Name: "conversions", Type: "UInt64"},
	{Name: "conversion_value", Type: "Int64"},
	{Name: "total_revenue", Type: "Int64"},
}

// OrgTimeseries is one org's blended daily point: ad platform sums side by
// side with connector revenue. Ad conversion_value and connector total_revenue
// stay separate so claimed value never mixes into verified revenue.
type OrgTimeseries struct {
	OrgID      string    `ch:"org_id" json:"org_id"`
	MetricDate time.Time `ch:"metric_date" json:"metric_date"` // Date (not DateTime)

	Impressions     uint64 `ch:"impressions" json:"impressions"`
	Clicks          uint64 `ch:"clicks" json:"clicks"`
	Spend           int64  `ch:"spend" json:"spend"`
	Conversions     uint64 `ch:"conversions" json:"conversions"`
	ConversionValue int64  `ch:"conversion_value" json:"conversion_value"` // Ad platforms only
	TotalRevenue    int64  `ch:"total_revenue" json:"total_revenue"`       // Connector sources only
}
