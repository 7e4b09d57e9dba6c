package reconcile

import "time"

// PlatformAll selects claims from every ad platform.
const PlatformAll = "all"

// Claim reconciliation statuses. Pending is the only non-terminal state; a
// reconciliation run overwrites it with one of the terminal states below.
const (
	StatusPending       = "pending"
	StatusMatched       = "matched"
	StatusOverReported  = "over_reported"
	StatusUnderReported = "under_reported"
	StatusDuplicate     = "duplicate"
	StatusUnmatched     = "unmatched"
)

// Possible reasons attached to unmatched claims by AnalyzeUnmatchedClaims.
const (
	ReasonUnknown              = "unknown"
	ReasonNoConversionInWindow = "no_conversion_in_window"
	ReasonClickIDNotCaptured   = "click_id_not_captured"
	ReasonClickIDMismatch      = "click_id_mismatch"
	ReasonValueMatchNoClickID  = "value_match_no_click_id"
)

// Platform trust levels assigned by GetPlatformInsights.
const (
	TrustHigh   = "high"
	TrustMedium = "medium"
	TrustLow    = "low"
)

// Claim is a platform-reported conversion claim. Money fields are integer
// minor units. VerifiedValue and Discrepancy are set only on matched claims.
type Claim struct {
	ID                   string    `json:"id"`
	OrgID                string    `json:"org_id"`
	Platform             string    `json:"platform"`
	ClickID              string    `json:"click_id"`
	ClickIDType          string    `json:"click_id_type"`
	CampaignID           string    `json:"campaign_id,omitempty"`
	ClaimedValue         int64     `json:"claimed_value"`
	ClaimedCount         uint64    `json:"claimed_count"`
	ClaimTimestamp       time.Time `json:"claim_timestamp"`
	ReconciliationStatus string    `json:"reconciliation_status"`
	MatchedConversionID  string    `json:"matched_conversion_id,omitempty"`
	VerifiedValue        *int64    `json:"verified_value,omitempty"`
	Discrepancy          *int64    `json:"discrepancy,omitempty"`
}

// Conversion is a verified ground-truth revenue event. Read-only input; the
// attributed click id links it back to the ad click, when captured.
type Conversion struct {
	ID                    string    `json:"id"`
	OrgID                 string    `json:"org_id"`
	SourcePlatform        string    `json:"source_platform"`
	ExternalOrderID       string    `json:"external_order_id"`
	Value                 int64     `json:"value"`
	ConversionTimestamp   time.Time `json:"conversion_timestamp"`
	AttributedClickID     string    `json:"attributed_click_id,omitempty"`
	AttributedClickIDType string    `json:"attributed_click_id_type,omitempty"`
}

// Input bundles one reconciliation run. Platform is a single ad platform or
// PlatformAll. Zero range bounds disable the corresponding time filter.
// AdSpend is the tenant's ad spend over the range, in minor units.
type Input struct {
	OrgID       string       `json:"org_id"`
	Platform    string       `json:"platform"`
	RangeStart  time.Time    `json:"range_start"`
	RangeEnd    time.Time    `json:"range_end"`
	Claims      []Claim      `json:"claims"`
	Conversions []Conversion `json:"conversions"`
	AdSpend     int64        `json:"ad_spend"`
}

// CampaignBreakdown carries the per-campaign slice of a reconciliation run.
type CampaignBreakdown struct {
	CampaignID    string  `json:"campaign_id"`
	Claims        int     `json:"claims"`
	Matched       int     `json:"matched"`
	ClaimedValue  int64   `json:"claimed_value"`
	VerifiedValue int64   `json:"verified_value"`
	Discrepancy   int64   `json:"discrepancy"`
	MatchRate     float64 `json:"match_rate"`
}

// Result is the outcome of one reconciliation run. Claims holds the updated
// copies of every claim that passed the platform and range filters.
type Result struct {
	OrgID      string    `json:"org_id"`
	Platform   string    `json:"platform"`
	RangeStart time.Time `json:"range_start"`
	RangeEnd   time.Time `json:"range_end"`

	TotalClaims     int `json:"total_claims"`
	MatchedClaims   int `json:"matched_claims"`
	UnmatchedClaims int `json:"unmatched_claims"`
	DuplicateClaims int `json:"duplicate_claims"`

	TotalClaimedValue  int64   `json:"total_claimed_value"`
	TotalVerifiedValue int64   `json:"total_verified_value"`
	Discrepancy        int64   `json:"discrepancy"`
	DiscrepancyPct     float64 `json:"discrepancy_pct"`

	AdSpend          int64   `json:"ad_spend"`
	ClaimedROAS      float64 `json:"claimed_roas"`
	ActualROAS       float64 `json:"actual_roas"`
	ROASInflationPct float64 `json:"roas_inflation_pct"`

	ClaimedConversions     uint64  `json:"claimed_conversions"`
	ActualConversions      int     `json:"actual_conversions"`
	ConversionInflationPct float64 `json:"conversion_inflation_pct"`

	MatchRate float64 `json:"match_rate"`

	Claims            []Claim                       `json:"claims"`
	UnmatchedClaimIDs []string                      `json:"unmatched_claim_ids,omitempty"`
	Campaigns         map[string]*CampaignBreakdown `json:"campaigns"`
}

// UnmatchedClaimAnalysis explains why a claim likely failed to match, with up
// to a handful of candidate conversions where one could plausibly exist.
type UnmatchedClaimAnalysis struct {
	ClaimID        string       `json:"claim_id"`
	CampaignID     string       `json:"campaign_id,omitempty"`
	ClaimedValue   int64        `json:"claimed_value"`
	ClaimTimestamp time.Time    `json:"claim_timestamp"`
	PossibleReason string       `json:"possible_reason"`
	Candidates     []Conversion `json:"candidates,omitempty"`
}

// TrendPoint is one date's aggregate across a series of reconciliation runs.
type TrendPoint struct {
	Date           string  `json:"date"`
	TotalClaims    int     `json:"total_claims"`
	MatchedClaims  int     `json:"matched_claims"`
	ClaimedValue   int64   `json:"claimed_value"`
	VerifiedValue  int64   `json:"verified_value"`
	DiscrepancyPct float64 `json:"discrepancy_pct"`
	MatchRate      float64 `json:"match_rate"`
}

// PlatformInsight summarizes how trustworthy a platform's claims have been
// across historical runs.
type PlatformInsight struct {
	Platform          string  `json:"platform"`
	Runs              int     `json:"runs"`
	AvgDiscrepancyPct float64 `json:"avg_discrepancy_pct"`
	AvgMatchRate      float64 `json:"avg_match_rate"`
	TrustLevel        string  `json:"trust_level"`
}
