// Package reconcile checks platform-reported conversion claims against
// verified revenue events. It owns no storage: callers load claims,
// conversions and spend, and persist whatever parts of the Result they need.
package reconcile

// Reconcile runs the claim state machine over one tenant's claims and returns
// per-claim verdicts plus run-level aggregates.
//
// Claims are processed in input order, and the first claim to reach a
// conversion consumes it; later claims against the same conversion come back
// as duplicates. The result therefore depends on claim order whenever
// duplicates exist. Callers that need deterministic output across runs must
// sort claims before calling, typically by claim timestamp.
func Reconcile(in Input) Result {
	claims := filterClaims(in)
	conversions := filterConversions(in)

	// Click-id lookup, last write wins. Multiple conversions sharing an
	// attributed click id collapse to the final one; they are not
	// deduplicated further.
	byClickID := make(map[string]Conversion, len(conversions))
	for _, conv := range conversions {
		if conv.AttributedClickID != "" {
			byClickID[conv.AttributedClickID] = conv
		}
	}

	res := Result{
		OrgID:             in.OrgID,
		Platform:          in.Platform,
		RangeStart:        in.RangeStart,
		RangeEnd:          in.RangeEnd,
		AdSpend:           in.AdSpend,
		TotalClaims:       len(claims),
		ActualConversions: len(conversions),
		Claims:            make([]Claim, 0, len(claims)),
		Campaigns:         make(map[string]*CampaignBreakdown),
	}

	consumed := make(map[string]bool, len(claims))
	for _, claim := range claims {
		var matchedValue int64
		var matchedDiscrepancy int64
		matched := false

		// Claims without a click id miss the lookup and land unmatched.
		conv, found := byClickID[claim.ClickID]
		switch {
		case !found:
			claim.ReconciliationStatus = StatusUnmatched
			claim.MatchedConversionID = ""
			claim.VerifiedValue = nil
			claim.Discrepancy = nil
			res.UnmatchedClaims++
			res.UnmatchedClaimIDs = append(res.UnmatchedClaimIDs, claim.ID)
		case consumed[conv.ID]:
			// First claim against a conversion wins; the rest are
			// excluded from matched and verified totals.
			claim.ReconciliationStatus = StatusDuplicate
			claim.MatchedConversionID = conv.ID
			claim.VerifiedValue = nil
			claim.Discrepancy = nil
			res.DuplicateClaims++
		default:
			consumed[conv.ID] = true
			matched = true
			matchedValue = conv.Value
			matchedDiscrepancy = claim.ClaimedValue - conv.Value

			verified := matchedValue
			discrepancy := matchedDiscrepancy
			claim.MatchedConversionID = conv.ID
			claim.VerifiedValue = &verified
			claim.Discrepancy = &discrepancy

			switch {
			case discrepancy == 0:
				claim.ReconciliationStatus = StatusMatched
			case discrepancy > 0:
				claim.ReconciliationStatus = StatusOverReported
			default:
				claim.ReconciliationStatus = StatusUnderReported
			}

			res.MatchedClaims++
			res.TotalVerifiedValue += verified
		}

		res.TotalClaimedValue += claim.ClaimedValue
		res.ClaimedConversions += claim.ClaimedCount

		breakdown := res.campaignBreakdown(claim.CampaignID)
		breakdown.Claims++
		breakdown.ClaimedValue += claim.ClaimedValue
		if matched {
			breakdown.Matched++
			breakdown.VerifiedValue += matchedValue
		}

		res.Claims = append(res.Claims, claim)
	}

	res.Discrepancy = res.TotalClaimedValue - res.TotalVerifiedValue
	if res.TotalClaimedValue != 0 {
		res.DiscrepancyPct = float64(res.Discrepancy) / float64(res.TotalClaimedValue) * 100
	}
	if res.AdSpend != 0 {
		res.ClaimedROAS = float64(res.TotalClaimedValue) / float64(res.AdSpend)
		res.ActualROAS = float64(res.TotalVerifiedValue) / float64(res.AdSpend)
	}
	if res.ActualROAS != 0 {
		res.ROASInflationPct = (res.ClaimedROAS - res.ActualROAS) / res.ActualROAS * 100
	}
	if res.ActualConversions != 0 {
		res.ConversionInflationPct = (float64(res.ClaimedConversions) - float64(res.ActualConversions)) /
			float64(res.ActualConversions) * 100
	}
	if res.TotalClaims != 0 {
		res.MatchRate = float64(res.MatchedClaims) / float64(res.TotalClaims)
	}

	for _, breakdown := range res.Campaigns {
		breakdown.Discrepancy = breakdown.ClaimedValue - breakdown.VerifiedValue
		if breakdown.Claims != 0 {
			breakdown.MatchRate = float64(breakdown.Matched) / float64(breakdown.Claims)
		}
	}

	return res
}

// campaignBreakdown returns the breakdown bucket for a campaign id, creating
// it on first use. Claims without a campaign land in the "unknown" bucket.
func (r *Result) campaignBreakdown(campaignID string) *CampaignBreakdown {
	key := campaignID
	if key == "" {
		key = "unknown"
	}
	breakdown, ok := r.Campaigns[key]
	if !ok {
		breakdown = &CampaignBreakdown{CampaignID: key}
		r.Campaigns[key] = breakdown
	}
	return breakdown
}

func filterClaims(in Input) []Claim {
	claims := make([]Claim, 0, len(in.Claims))
	for _, claim := range in.Claims {
		if in.Platform != PlatformAll && claim.Platform != in.Platform {
			continue
		}
		if !in.RangeStart.IsZero() && claim.ClaimTimestamp.Before(in.RangeStart) {
			continue
		}
		if !in.RangeEnd.IsZero() && claim.ClaimTimestamp.After(in.RangeEnd) {
			continue
		}
		claims = append(claims, claim)
	}
	return claims
}

func filterConversions(in Input) []Conversion {
	conversions := make([]Conversion, 0, len(in.Conversions))
	for _, conv := range in.Conversions {
		if !in.RangeStart.IsZero() && conv.ConversionTimestamp.Before(in.RangeStart) {
			continue
		}
		if !in.RangeEnd.IsZero() && conv.ConversionTimestamp.After(in.RangeEnd) {
			continue
		}
		conversions = append(conversions, conv)
	}
	return conversions
}
