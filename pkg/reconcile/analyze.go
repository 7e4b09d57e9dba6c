package reconcile

import (
	"sort"
	"time"
)

// matchWindow bounds the conversion search around an unmatched claim's
// timestamp.
const matchWindow = 24 * time.Hour

// maxCandidates caps the conversions attached to one analysis.
const maxCandidates = 5

// valueTolerance is the minor-unit distance within which a conversion counts
// as a value match for claims that carry no usable timestamp.
const valueTolerance = 1

// AnalyzeUnmatchedClaims explains unmatched claims by searching the verified
// conversions around each claim. Claims in any other status are skipped.
func AnalyzeUnmatchedClaims(claims []Claim, conversions []Conversion) []UnmatchedClaimAnalysis {
	analyses := make([]UnmatchedClaimAnalysis, 0)
	for _, claim := range claims {
		if claim.ReconciliationStatus != StatusUnmatched {
			continue
		}

		analysis := UnmatchedClaimAnalysis{
			ClaimID:        claim.ID,
			CampaignID:     claim.CampaignID,
			ClaimedValue:   claim.ClaimedValue,
			ClaimTimestamp: claim.ClaimTimestamp,
			PossibleReason: ReasonUnknown,
		}

		if !claim.ClaimTimestamp.IsZero() {
			window := conversionsInWindow(claim.ClaimTimestamp, conversions)
			noClickID := withoutClickID(window)
			switch {
			case len(window) == 0:
				analysis.PossibleReason = ReasonNoConversionInWindow
			case len(noClickID) > 0:
				analysis.PossibleReason = ReasonClickIDNotCaptured
				analysis.Candidates = capCandidates(noClickID)
			default:
				// Conversions exist nearby but every one carries a
				// click id that failed to match this claim's.
				analysis.PossibleReason = ReasonClickIDMismatch
			}
		}

		// Value fallback for claims with no usable timestamp. It never
		// overrides a window-check reason.
		if analysis.PossibleReason == ReasonUnknown {
			if near := conversionsByValue(claim.ClaimedValue, conversions); len(near) > 0 {
				analysis.PossibleReason = ReasonValueMatchNoClickID
				analysis.Candidates = capCandidates(near)
			}
		}

		analyses = append(analyses, analysis)
	}
	return analyses
}

// CalculateTrends folds a series of reconciliation results into one point per
// range-start date, summing counts and values before re-deriving the ratios.
// Points come back sorted by date.
func CalculateTrends(results []Result) []TrendPoint {
	byDate := make(map[string]*TrendPoint)
	for _, res := range results {
		date := res.RangeStart.UTC().Format("2006-01-02")
		point, ok := byDate[date]
		if !ok {
			point = &TrendPoint{Date: date}
			byDate[date] = point
		}
		point.TotalClaims += res.TotalClaims
		point.MatchedClaims += res.MatchedClaims
		point.ClaimedValue += res.TotalClaimedValue
		point.VerifiedValue += res.TotalVerifiedValue
	}

	trends := make([]TrendPoint, 0, len(byDate))
	for _, point := range byDate {
		if point.ClaimedValue != 0 {
			point.DiscrepancyPct = float64(point.ClaimedValue-point.VerifiedValue) /
				float64(point.ClaimedValue) * 100
		}
		if point.TotalClaims != 0 {
			point.MatchRate = float64(point.MatchedClaims) / float64(point.TotalClaims)
		}
		trends = append(trends, *point)
	}

	sort.Slice(trends, func(i, j int) bool { return trends[i].Date < trends[j].Date })
	return trends
}

// GetPlatformInsights averages discrepancy and match rate per platform across
// historical results and grades each platform's trustworthiness. The
// discrepancy thresholds compare the signed average: sustained
// under-reporting reads as trustworthy here, only inflation is penalized.
func GetPlatformInsights(results []Result) []PlatformInsight {
	type rollup struct {
		runs           int
		discrepancyPct float64
		matchRate      float64
	}

	byPlatform := make(map[string]*rollup)
	for _, res := range results {
		agg, ok := byPlatform[res.Platform]
		if !ok {
			agg = &rollup{}
			byPlatform[res.Platform] = agg
		}
		agg.runs++
		agg.discrepancyPct += res.DiscrepancyPct
		agg.matchRate += res.MatchRate
	}

	insights := make([]PlatformInsight, 0, len(byPlatform))
	for platform, agg := range byPlatform {
		insight := PlatformInsight{
			Platform:          platform,
			Runs:              agg.runs,
			AvgDiscrepancyPct: agg.discrepancyPct / float64(agg.runs),
			AvgMatchRate:      agg.matchRate / float64(agg.runs),
		}
		insight.TrustLevel = trustLevel(insight.AvgMatchRate, insight.AvgDiscrepancyPct)
		insights = append(insights, insight)
	}

	sort.Slice(insights, func(i, j int) bool { return insights[i].Platform < insights[j].Platform })
	return insights
}

// trustLevel grades a platform from its historical averages. The thresholds
// are fixed policy, not tenant-configurable.
func trustLevel(avgMatchRate, avgDiscrepancyPct float64) string {
	switch {
	case avgMatchRate >= 0.9 && avgDiscrepancyPct <= 10:
		return TrustHigh
	case avgMatchRate >= 0.7 && avgDiscrepancyPct <= 25:
		return TrustMedium
	default:
		return TrustLow
	}
}

func conversionsInWindow(at time.Time, conversions []Conversion) []Conversion {
	window := make([]Conversion, 0)
	for _, conv := range conversions {
		diff := conv.ConversionTimestamp.Sub(at)
		if diff < 0 {
			diff = -diff
		}
		if diff <= matchWindow {
			window = append(window, conv)
		}
	}
	return window
}

func withoutClickID(conversions []Conversion) []Conversion {
	missing := make([]Conversion, 0)
	for _, conv := range conversions {
		if conv.AttributedClickID == "" {
			missing = append(missing, conv)
		}
	}
	return missing
}

func conversionsByValue(claimedValue int64, conversions []Conversion) []Conversion {
	near := make([]Conversion, 0)
	for _, conv := range conversions {
		diff := conv.Value - claimedValue
		if diff < 0 {
			diff = -diff
		}
		if diff <= valueTolerance {
			near = append(near, conv)
		}
	}
	return near
}

func capCandidates(conversions []Conversion) []Conversion {
	if len(conversions) > maxCandidates {
		return conversions[:maxCandidates]
	}
	return conversions
}
