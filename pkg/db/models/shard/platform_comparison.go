package shard

import (
	"time"
)

const PlatformComparisonsTableName = "platform_comparisons"

// PlatformComparisonColumns defines the schema for platform_comparisons.
// Version-less ReplacingMergeTree keyed on (org_id, period_days, comparison_date).
// Connector pseudo-platform rows never reach this table; the pivot filters to
// the three ad platforms.
var PlatformComparisonColumns = []ColumnDef{
	{Name: "org_id", Type: "String"},
	{Name: "period_days", Type: "UInt16"},
	{Name: "comparison_date", Type: "Date"},
	{Name: "google_impressions", Type: "UInt64"},
	{Name: "google_clicks", Type: "UInt64"},
	{Name: "google_spend", Type: "Int64"},
	{Name: "google_conversions", Type: "UInt64"},
	{Name: "google_conversion_value", Type: "Int64"},
	{Name: "google_roas", Type: "Float64"},
	{Name: "facebook_impressions", Type: "UInt64"},
	{Name: "facebook_clicks", Type: "UInt64"},
	{Name: "facebook_spend", Type: "Int64"},
	{Name: "facebook_conversions", Type: "UInt64"},
	{Name: "facebook_conversion_value", Type: "Int64"},
	{Name: "facebook_roas", Type: "Float64"},
	{Name: "tiktok_impressions", Type: "UInt64"},
	{Name: "tiktok_clicks", Type: "UInt64"},
	{Name: "tiktok_spend", Type: "Int64"},
	{Name: "tiktok_conversions", Type: "UInt64"},
	{Name: "tiktok_conversion_value", Type: "Int64"},
	{Name: "tiktok_roas", Type: "Float64"},
	{Name: "total_impressions", Type: "UInt64"},
	{Name: "total_clicks", Type: "UInt64"},
	{Name: "total_spend", Type: "Int64"},
	{Name: "total_conversions", Type: "UInt64"},
	{Name: "total_conversion_value", Type: "Int64"},
	{Name: "blended_roas", Type: "Float64"},
	{Name: "blended_ctr", Type: "Float64"},
	{Name: "blended_cpc", Type: "Int64"},
}

// PlatformComparison is one org's side-by-side platform pivot over a trailing
// window ending at comparison_date. Totals and blended ratios cover the ad
// platforms only.
type PlatformComparison struct {
	OrgID          string    `ch:"org_id" json:"org_id"`
	PeriodDays     uint16    `ch:"period_days" json:"period_days"`
	ComparisonDate time.Time `ch:"comparison_date" json:"comparison_date"` // Date (not DateTime)

	GoogleImpressions     uint64  `ch:"google_impressions" json:"google_impressions"`
	GoogleClicks          uint64  `ch:"google_clicks" json:"google_clicks"`
	GoogleSpend           int64   `ch:"google_spend" json:"google_spend"`
	GoogleConversions     uint64  `ch:"google_conversions" json:"google_conversions"`
	GoogleConversionValue int64   `ch:"google_conversion_value" json:"google_conversion_value"`
	GoogleROAS            float64 `ch:"google_roas" json:"google_roas"`

	FacebookImpressions     uint64  `ch:"facebook_impressions" json:"facebook_impressions"`
	FacebookClicks          uint64  `ch:"facebook_clicks" json:"facebook_clicks"`
	FacebookSpend           int64   `ch:"facebook_spend" json:"facebook_spend"`
	FacebookConversions     uint64  `ch:"facebook_conversions" json:"facebook_conversions"`
	FacebookConversionValue int64   `ch:"facebook_conversion_value" json:"facebook_conversion_value"`
	FacebookROAS            float64 `ch:"facebook_roas" json:"facebook_roas"`

	TiktokImpressions     uint64  `ch:"tiktok_impressions" json:"tiktok_impressions"`
	TiktokClicks          uint64  `ch:"tiktok_clicks" json:"tiktok_clicks"`
	TiktokSpend           int64   `ch:"tiktok_spend" json:"tiktok_spend"`
	TiktokConversions     uint64  `ch:"tiktok_conversions" json:"tiktok_conversions"`
	TiktokConversionValue int64   `ch:"tiktok_conversion_value" json:"tiktok_conversion_value"`
	TiktokROAS            float64 `ch:"tiktok_roas" json:"tiktok_roas"`

	TotalImpressions     uint64 `ch:"total_impressions" json:"total_impressions"`
	TotalClicks          uint64 `ch:"total_clicks" json:"total_clicks"`
	TotalSpend           int64  `ch:"total_spend" json:"total_spend"`
	TotalConversions     uint64 `ch:"total_conversions" json:"total_conversions"`
	TotalConversionValue int64  `ch:"total_conversion_value" json:"total_conversion_value"`

	BlendedROAS float64 `ch:"blended_roas" json:"blended_roas"`
	BlendedCTR  float64 `ch:"blended_ctr" json:"blended_ctr"`
	BlendedCPC  int64   `ch:"blended_cpc" json:"blended_cpc"`
}
