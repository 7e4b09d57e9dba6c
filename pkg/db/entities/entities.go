// Package entities provides type-safe constants and helpers for the platform,
// entity and connector-source vocabulary.
//
// This package is the single source of truth for every per-platform table name
// used throughout the system: shard DDL, the backfill copy loops and the
// aggregation SQL all resolve names through it rather than concatenating
// strings at call sites.
//
// Design Philosophy:
//   - Type safety: Catch errors at compile time, not runtime
//   - Single source of truth: All names defined in one place
//   - Zero overhead: Constants compile away to their string values
//
// Usage Example:
//
//	// In the backfill - iterate platforms and their tables in copy order
//	for _, platform := range entities.AdPlatforms() {
//	    for _, entity := range entities.All() {
//	        copyTable(ctx, entity.TableName(platform))
//	    }
//	}
//
// Thread Safety:
//
//	All functions and methods in this package are safe for concurrent use.
package entities

import (
	"fmt"
	"sort"
	"strings"
)

// Platform represents an advertising platform whose entities and metrics live
// in per-platform shard tables.
type Platform string

const (
	Google   Platform = "google"
	Facebook Platform = "facebook"
	Tiktok   Platform = "tiktok"
)

// adPlatforms is the canonical platform order. Backfill and aggregation loops
// follow this order so progress records and logs stay comparable across runs.
var adPlatforms = []Platform{Google, Facebook, Tiktok}

// Entity represents a per-platform table kind (campaigns, ads, metric tables).
// Entity values should be treated as immutable constants. Use the package-level
// constants rather than constructing Entity values directly.
type Entity string

const (
	// Campaigns represents the campaign entity table ({platform}_campaigns).
	Campaigns Entity = "campaigns"

	// AdGroups represents the mid-level entity table. Google and TikTok call
	// it an ad group; Facebook calls it an ad set, and only the table name
	// differs ({platform}_ad_groups vs facebook_ad_sets).
	AdGroups Entity = "ad_groups"

	// Ads represents the ad entity table ({platform}_ads).
	Ads Entity = "ads"

	// CampaignMetrics represents daily campaign performance rows.
	CampaignMetrics Entity = "campaign_metrics"

	// AdGroupMetrics represents daily ad group performance rows
	// ({platform}_ad_group_metrics vs facebook_ad_set_metrics).
	AdGroupMetrics Entity = "ad_group_metrics"

	// AdMetrics represents daily ad performance rows.
	AdMetrics Entity = "ad_metrics"
)

// allEntities contains the complete list of valid entities in copy order:
// structure tables first, then their metric tables. The backfill iterates this
// slice, so changing the order changes the "table N of 6" resumption points.
var allEntities = []Entity{
	Campaigns,
	AdGroups,
	Ads,
	CampaignMetrics,
	AdGroupMetrics,
	AdMetrics,
}

// entitySet is a pre-computed map for O(1) validation lookups.
var entitySet map[Entity]bool

// Source represents a commerce connector that reports ground-truth revenue
// events (the verified side of reconciliation).
type Source string

const (
	Shopify     Source = "shopify"
	Stripe      Source = "stripe"
	Woocommerce Source = "woocommerce"
)

var allSources = []Source{Shopify, Stripe, Woocommerce}

// successStatuses maps each source to the statuses that count as conversions.
// Fixed policy, not configuration: both the per-shard connector fold and the
// revenue rollup filter on these sets.
var successStatuses = map[Source][]string{
	Shopify:     {"paid", "partially_paid"},
	Stripe:      {"succeeded", "paid"},
	Woocommerce: {"completed", "processing"},
}

func init() {
	// Build the validation set for fast lookups
	entitySet = make(map[Entity]bool, len(allEntities))
	for _, e := range allEntities {
		entitySet[e] = true
	}

	// Validate that all entities are properly configured
	// This catches developer errors at startup rather than in production
	for _, e := range allEntities {
		if e == "" {
			panic("entities: empty entity name detected in allEntities")
		}
		if strings.Contains(string(e), " ") {
			panic(fmt.Sprintf("entities: entity name %q contains whitespace", e))
		}
	}
	for _, s := range allSources {
		if len(successStatuses[s]) == 0 {
			panic(fmt.Sprintf("entities: source %q has no success statuses", s))
		}
	}
}

// String returns the platform name as a string.
func (p Platform) String() string {
	return string(p)
}

// IsValid returns true if this platform is one of the known ad platforms.
func (p Platform) IsValid() bool {
	for _, known := range adPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// AdPlatforms returns all ad platforms in canonical order.
// The returned slice is a copy, so modifications won't affect internal state.
func AdPlatforms() []Platform {
	result := make([]Platform, len(adPlatforms))
	copy(result, adPlatforms)
	return result
}

// AdPlatformStrings returns the ad platform names as strings, for SQL IN
// filters and log fields.
func AdPlatformStrings() []string {
	result := make([]string, len(adPlatforms))
	for i, p := range adPlatforms {
		result[i] = p.String()
	}
	return result
}

// PlatformFromString converts a string to a Platform and validates it.
func PlatformFromString(s string) (Platform, error) {
	p := Platform(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown platform %q, valid platforms: %s", s, strings.Join(AdPlatformStrings(), ", "))
	}
	return p, nil
}

// String returns the entity name as a string.
// This implements the fmt.Stringer interface and is used for logging and serialization.
func (e Entity) String() string {
	return string(e)
}

// TableName returns the table name for this entity on the given platform.
// Facebook's mid-level entity is an ad set, so its two ad-group tables are
// named facebook_ad_sets / facebook_ad_set_metrics; every other combination is
// the regular {platform}_{entity} form. The same names are used by the legacy
// monolith and by the shards, which is what makes the backfill a straight copy.
//
// Example:
//
//	entities.Campaigns.TableName(entities.Google)      // "google_campaigns"
//	entities.AdGroups.TableName(entities.Facebook)     // "facebook_ad_sets"
//	entities.AdGroupMetrics.TableName(entities.Tiktok) // "tiktok_ad_group_metrics"
func (e Entity) TableName(p Platform) string {
	if p == Facebook {
		switch e {
		case AdGroups:
			return "facebook_ad_sets"
		case AdGroupMetrics:
			return "facebook_ad_set_metrics"
		}
	}
	return fmt.Sprintf("%s_%s", p, e)
}

// IsMetrics reports whether this entity is one of the daily metric tables.
func (e Entity) IsMetrics() bool {
	switch e {
	case CampaignMetrics, AdGroupMetrics, AdMetrics:
		return true
	}
	return false
}

// IsValid returns true if this entity is in the list of known entities.
// Use this to validate entity values that may come from external sources.
func (e Entity) IsValid() bool {
	return entitySet[e]
}

// MarshalText implements encoding.TextMarshaler for JSON serialization.
func (e Entity) MarshalText() ([]byte, error) {
	return []byte(e), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON deserialization.
// This validates that deserialized values are valid entities.
func (e *Entity) UnmarshalText(text []byte) error {
	entity := Entity(text)
	if !entity.IsValid() {
		return fmt.Errorf("invalid entity: %q", text)
	}
	*e = entity
	return nil
}

// FromString converts a string to an Entity and validates it.
// This is the safe way to construct an Entity from external input.
func FromString(s string) (Entity, error) {
	entity := Entity(s)
	if !entity.IsValid() {
		return "", fmt.Errorf("unknown entity %q, valid entities: %s", s, validEntitiesString())
	}
	return entity, nil
}

// All returns a slice of all valid entities in copy order.
// The returned slice is a copy, so modifications won't affect the internal state.
func All() []Entity {
	result := make([]Entity, len(allEntities))
	copy(result, allEntities)
	return result
}

// AllStrings returns all entity names as strings.
func AllStrings() []string {
	result := make([]string, len(allEntities))
	for i, e := range allEntities {
		result[i] = e.String()
	}
	return result
}

// Count returns the number of entities per platform.
// Useful for sizing slices or reporting progress ("table N of 6").
func Count() int {
	return len(allEntities)
}

// String returns the source name as a string.
func (s Source) String() string {
	return string(s)
}

// IsValid returns true if this source is a known connector.
func (s Source) IsValid() bool {
	_, ok := successStatuses[s]
	return ok
}

// Sources returns all connector sources in canonical order.
func Sources() []Source {
	result := make([]Source, len(allSources))
	copy(result, allSources)
	return result
}

// SuccessStatuses returns the statuses that count as conversions for a source.
// The returned slice is a copy.
func SuccessStatuses(s Source) []string {
	statuses := successStatuses[s]
	result := make([]string, len(statuses))
	copy(result, statuses)
	return result
}

// validEntitiesString returns a comma-separated list of valid entity names.
// Used for error messages.
func validEntitiesString() string {
	names := AllStrings()
	sort.Strings(names) // Sort for consistent error messages
	return strings.Join(names, ", ")
}
