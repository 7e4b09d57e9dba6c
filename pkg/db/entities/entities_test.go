package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEntityTableNames verifies table naming across platforms, including the
// facebook ad-set naming of the mid-level entity.
func TestEntityTableNames(t *testing.T) {
	tests := []struct {
		name     string
		entity   Entity
		platform Platform
		expected string
	}{
		{"google campaigns", Campaigns, Google, "google_campaigns"},
		{"facebook campaigns", Campaigns, Facebook, "facebook_campaigns"},
		{"tiktok campaigns", Campaigns, Tiktok, "tiktok_campaigns"},
		{"google ad groups", AdGroups, Google, "google_ad_groups"},
		{"facebook ad sets", AdGroups, Facebook, "facebook_ad_sets"},
		{"tiktok ad groups", AdGroups, Tiktok, "tiktok_ad_groups"},
		{"google ads", Ads, Google, "google_ads"},
		{"facebook ads", Ads, Facebook, "facebook_ads"},
		{"google campaign metrics", CampaignMetrics, Google, "google_campaign_metrics"},
		{"facebook campaign metrics", CampaignMetrics, Facebook, "facebook_campaign_metrics"},
		{"google ad group metrics", AdGroupMetrics, Google, "google_ad_group_metrics"},
		{"facebook ad set metrics", AdGroupMetrics, Facebook, "facebook_ad_set_metrics"},
		{"tiktok ad group metrics", AdGroupMetrics, Tiktok, "tiktok_ad_group_metrics"},
		{"tiktok ad metrics", AdMetrics, Tiktok, "tiktok_ad_metrics"},
		{"facebook ad metrics", AdMetrics, Facebook, "facebook_ad_metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.entity.TableName(tt.platform))
		})
	}
}

// TestEntityCopyOrder verifies structure tables come before their metric
// tables; the backfill's resumption points depend on this order.
func TestEntityCopyOrder(t *testing.T) {
	expected := []Entity{Campaigns, AdGroups, Ads, CampaignMetrics, AdGroupMetrics, AdMetrics}
	assert.Equal(t, expected, All())
	assert.Equal(t, 6, Count())
}

func TestAllReturnsCopy(t *testing.T) {
	first := All()
	first[0] = Entity("mutated")
	assert.Equal(t, Campaigns, All()[0], "All must return an isolated copy")
}

func TestEntityIsValid(t *testing.T) {
	tests := []struct {
		name     string
		entity   Entity
		expected bool
	}{
		{"valid campaigns", Campaigns, true},
		{"valid ad_groups", AdGroups, true},
		{"valid ad_metrics", AdMetrics, true},
		{"invalid empty", Entity(""), false},
		{"invalid typo", Entity("campains"), false},
		{"invalid table name form", Entity("google_campaigns"), false},
		{"invalid uppercase", Entity("CAMPAIGNS"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.entity.IsValid())
		})
	}
}

func TestEntityIsMetrics(t *testing.T) {
	assert.False(t, Campaigns.IsMetrics())
	assert.False(t, AdGroups.IsMetrics())
	assert.False(t, Ads.IsMetrics())
	assert.True(t, CampaignMetrics.IsMetrics())
	assert.True(t, AdGroupMetrics.IsMetrics())
	assert.True(t, AdMetrics.IsMetrics())
}

func TestFromString(t *testing.T) {
	entity, err := FromString("campaigns")
	require.NoError(t, err)
	assert.Equal(t, Campaigns, entity)

	_, err = FromString("not_an_entity")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity")
}

// TestEntityJSONRoundTrip verifies text marshaling used when entity names ride
// inside workflow inputs.
func TestEntityJSONRoundTrip(t *testing.T) {
	payload, err := json.Marshal(AdGroupMetrics)
	require.NoError(t, err)
	assert.Equal(t, `"ad_group_metrics"`, string(payload))

	var decoded Entity
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, AdGroupMetrics, decoded)

	var invalid Entity
	err = json.Unmarshal([]byte(`"nope"`), &invalid)
	require.Error(t, err)
}

func TestAdPlatforms(t *testing.T) {
	assert.Equal(t, []Platform{Google, Facebook, Tiktok}, AdPlatforms())
	assert.Equal(t, []string{"google", "facebook", "tiktok"}, AdPlatformStrings())

	platforms := AdPlatforms()
	platforms[0] = Platform("mutated")
	assert.Equal(t, Google, AdPlatforms()[0], "AdPlatforms must return an isolated copy")
}

func TestPlatformFromString(t *testing.T) {
	p, err := PlatformFromString("facebook")
	require.NoError(t, err)
	assert.Equal(t, Facebook, p)

	_, err = PlatformFromString("bing")
	require.Error(t, err)

	_, err = PlatformFromString("connector")
	require.Error(t, err, "connector is a progress key, not an ad platform")
}

func TestSuccessStatuses(t *testing.T) {
	tests := []struct {
		source   Source
		expected []string
	}{
		{Shopify, []string{"paid", "partially_paid"}},
		{Stripe, []string{"succeeded", "paid"}},
		{Woocommerce, []string{"completed", "processing"}},
	}

	for _, tt := range tests {
		t.Run(tt.source.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, SuccessStatuses(tt.source))
		})
	}

	statuses := SuccessStatuses(Shopify)
	statuses[0] = "mutated"
	assert.Equal(t, "paid", SuccessStatuses(Shopify)[0], "SuccessStatuses must return an isolated copy")
}

func TestSources(t *testing.T) {
	assert.Equal(t, []Source{Shopify, Stripe, Woocommerce}, Sources())
	assert.True(t, Stripe.IsValid())
	assert.False(t, Source("paypal").IsValid())
}
