package shard

import (
	"time"
)

// MetricColumns defines the schema shared by all six per-platform metric tables
// ({platform}_campaign_metrics, {platform}_ad_group_metrics / facebook_ad_set_metrics,
// {platform}_ad_metrics). The entity level is encoded by table identity, so a
// single column set and Go type cover every level.
var MetricColumns = []ColumnDef{
	{Name: "id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "org_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "entity_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "metric_date", Type: "Date", Codec: "DoubleDelta, LZ4"},
	{Name: "impressions", Type: "UInt64", Codec: "Delta, ZSTD(3)"},
	{Name: "clicks", Type: "UInt64", Codec: "Delta, ZSTD(3)"},
	{Name: "spend_amount", Type: "Int64", Codec: "Delta, ZSTD(3)"},
	{Name: "conversions", Type: "UInt64", Codec: "Delta, ZSTD(3)"},
	{Name: "conversion_value", Type: "Int64", Codec: "Delta, ZSTD(3)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// MetricRow is one day of performance for one entity (campaign, ad group or ad).
// Keyed on (org_id, entity_id, metric_date): re-copying a page during backfill
// replaces the day instead of double counting it.
//
// Money fields are integer minor units end to end; no float conversion happens
// before the rollup ratios are computed in SQL.
type MetricRow struct {
	ID       string `ch:"id" json:"id"`
	OrgID    string `ch:"org_id" json:"org_id"`
	EntityID string `ch:"entity_id" json:"entity_id"` // Row key of the campaign/ad group/ad

	MetricDate time.Time `ch:"metric_date" json:"metric_date"` // Date (not DateTime)

	Impressions     uint64 `ch:"impressions" json:"impressions"`
	Clicks          uint64 `ch:"clicks" json:"clicks"`
	SpendAmount     int64  `ch:"spend_amount" json:"spend_amount"`         // Minor units
	Conversions     uint64 `ch:"conversions" json:"conversions"`           // Platform-claimed conversions
	ConversionValue int64  `ch:"conversion_value" json:"conversion_value"` // Minor units

	UpdatedAt time.Time `ch:"updated_at" json:"updated_at"`
}
