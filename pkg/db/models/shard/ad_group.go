package shard

import (
	"time"
)

// AdGroupColumns defines the schema for the per-platform ad group tables
// ({platform}_ad_groups; facebook names the table {platform}_ad_sets).
var AdGroupColumns = []ColumnDef{
	{Name: "id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "org_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "campaign_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "ad_group_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "name", Type: "String", Codec: "ZSTD(1)"},
	{Name: "status", Type: "String", Codec: "ZSTD(1)"},
	{Name: "payload", Type: "String", Codec: "ZSTD(3)"},
	{Name: "deleted_at", Type: "Nullable(DateTime64(3))"},
	{Name: "created_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// AdGroup is the mid-level entity between campaign and ad. Facebook calls it
// an ad set; only the table name differs, the schema and the Go type are shared.
type AdGroup struct {
	ID         string `ch:"id" json:"id"`
	OrgID      string `ch:"org_id" json:"org_id"`
	CampaignID string `ch:"campaign_id" json:"campaign_id"` // Row key of the parent campaign
	AdGroupID  string `ch:"ad_group_id" json:"ad_group_id"` // Platform-side identifier
	Name       string `ch:"name" json:"name"`
	Status     string `ch:"status" json:"status"`
	Payload    string `ch:"payload" json:"payload,omitempty"`

	DeletedAt *time.Time `ch:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `ch:"created_at" json:"created_at"`
	UpdatedAt time.Time  `ch:"updated_at" json:"updated_at"`
}
