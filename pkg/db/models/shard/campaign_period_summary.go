package shard

import (
	"time"
)

const CampaignPeriodSummariesTableName = "campaign_period_summaries"

// PeriodDays enumerates the rolling windows the campaign rollup covers.
var PeriodDays = []int{7, 30, 90}

// CampaignPeriodSummaryColumns defines the schema for campaign_period_summaries.
// Version-less ReplacingMergeTree keyed on (org_id, platform, campaign_id, period_days).
var CampaignPeriodSummaryColumns = []ColumnDef{
	{Name: "org_id", Type: "String"},
	{Name: "platform", Type: "String"},
	{Name: "campaign_id", Type: "String"},
	{Name: "campaign_name", Type: "String"},
	{Name: "period_days", Type: "UInt16"},
	{Name: "period_start", Type: "Date"},
	{Name: "period_end", Type: "Date"},
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
	{Name: "budget_utilization_pct", Type: "Float64"},
}

// CampaignPeriodSummary is one campaign's performance over a trailing
// 7/30/90-day window ending at the aggregation date.
type CampaignPeriodSummary struct {
	OrgID        string `ch:"org_id" json:"org_id"`
	Platform     string `ch:"platform" json:"platform"`
	CampaignID   string `ch:"campaign_id" json:"campaign_id"` // Row key of the campaign
	CampaignName string `ch:"campaign_name" json:"campaign_name"`

	PeriodDays  uint16    `ch:"period_days" json:"period_days"` // 7, 30 or 90
	PeriodStart time.Time `ch:"period_start" json:"period_start"`
	PeriodEnd   time.Time `ch:"period_end" json:"period_end"`

	Impressions     uint64 `ch:"impressions" json:"impressions"`
	Clicks          uint64 `ch:"clicks" json:"clicks"`
	Spend           int64  `ch:"spend" json:"spend"`
	Conversions     uint64 `ch:"conversions" json:"conversions"`
	ConversionValue int64  `ch:"conversion_value" json:"conversion_value"`

	CTR  float64 `ch:"ctr" json:"ctr"`
	CPC  int64   `ch:"cpc" json:"cpc"`
	CPM  int64   `ch:"cpm" json:"cpm"`
	ROAS float64 `ch:"roas" json:"roas"`
	CPA  int64   `ch:"cpa" json:"cpa"`

	// spend / (daily budget x period days) x 100; 0 for lifetime or zero budgets.
	BudgetUtilizationPct float64 `ch:"budget_utilization_pct" json:"budget_utilization_pct"`
}
