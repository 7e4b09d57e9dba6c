package shard

import (
	"time"
)

const OrgDailySummariesTableName = "org_daily_summaries"

// OrgDailySummaryColumns defines the schema for org_daily_summaries.
// Version-less ReplacingMergeTree keyed on (org_id, platform, metric_date):
// a re-run writes the same bytes for unchanged input, so last-insert-wins
// deduplication keeps the rollup idempotent.
var OrgDailySummaryColumns = []ColumnDef{
	{Name: "org_id", Type: "String"},
	{Name: "platform", Type: "String"},
	{Name: "metric_date", Type: "Date"},
	{Name: "campaigns_count", Type: "UInt32"},
	{Name: "impressions", Type: "UInt64"},
	{Name: "clicks", Type: "UInt64"},
	{Name: "spend", Type: "Int64"},
	{Name: "conversions", Type: "UInt64"},
	{Name: "conversion_value", Type: "Int64"},
	{Name: "ctr", Type: "Float64"},
	{Name: "cpc", Type: "Int64"},
	{Name: "cpm", Type: "Int64"},
	{Name: "roas", Type: "Float64"},
	{Name: "cpa", Type: "Int64"},
}

// OrgDailySummary is one org x platform x day rollup row. The platform column
// also carries connector sources (shopify/stripe/woocommerce) as synthetic
// platforms with zeroed ad fields.
type OrgDailySummary struct {
	OrgID      string    `ch:"org_id" json:"org_id"`
	Platform   string    `ch:"platform" json:"platform"`
	MetricDate time.Time `ch:"metric_date" json:"metric_date"` // Date (not DateTime)

	CampaignsCount  uint32 `ch:"campaigns_count" json:"campaigns_count"`
	Impressions     uint64 `ch:"impressions" json:"impressions"`
	Clicks          uint64 `ch:"clicks" json:"clicks"`
	Spend           int64  `ch:"spend" json:"spend"`
	Conversions     uint64 `ch:"conversions" json:"conversions"`
	ConversionValue int64  `ch:"conversion_value" json:"conversion_value"`

	// Derived ratios; every one is exactly 0 on a zero denominator.
	// CPC/CPM/CPA are truncating integer divisions (intDiv), kept in minor units.
	CTR  float64 `ch:"ctr" json:"ctr"`
	CPC  int64   `ch:"cpc" json:"cpc"`
	CPM  int64   `ch:"cpm" json:"cpm"`
	ROAS float64 `ch:"roas" json:"roas"`
	CPA  int64   `ch:"cpa" json:"cpa"`
}
