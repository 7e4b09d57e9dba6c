package shard

import (
	"time"
)

// CampaignColumns defines the schema for the per-platform campaign tables
// ({platform}_campaigns). The table name carries the platform; the schema is
// identical across platforms.
var CampaignColumns = []ColumnDef{
	{Name: "id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "org_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "campaign_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "name", Type: "String", Codec: "ZSTD(1)"},
	{Name: "status", Type: "String", Codec: "ZSTD(1)"},
	{Name: "budget_amount", Type: "Int64", Codec: "Delta, ZSTD(3)"},
	{Name: "budget_type", Type: "String", Codec: "ZSTD(1)"},
	{Name: "payload", Type: "String", Codec: "ZSTD(3)"},
	{Name: "deleted_at", Type: "Nullable(DateTime64(3))"},
	{Name: "created_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// Campaign is one advertising campaign row as stored in a shard.
// Rows are versioned by updated_at; ReplacingMergeTree keyed on (org_id, id)
// makes every write an insert-or-replace, which is what lets the backfill
// re-copy pages after a crash without double counting.
//
// The payload column holds the platform's raw JSON verbatim. It is copied as
// opaque text during migration and never parsed by this system.
type Campaign struct {
	// Identity
	ID         string `ch:"id" json:"id"`                   // Row key (stable across legacy store and shard)
	OrgID      string `ch:"org_id" json:"org_id"`           // Owning tenant
	CampaignID string `ch:"campaign_id" json:"campaign_id"` // Platform-side campaign identifier

	// Descriptive state
	Name   string `ch:"name" json:"name"`
	Status string `ch:"status" json:"status"` // Platform-reported status (active/paused/...)

	// Budget (minor currency units)
	BudgetAmount int64  `ch:"budget_amount" json:"budget_amount"`
	BudgetType   string `ch:"budget_type" json:"budget_type"` // "daily" or "lifetime"

	// Opaque platform payload (raw JSON, never parsed)
	Payload string `ch:"payload" json:"payload,omitempty"`

	// Lifecycle
	DeletedAt *time.Time `ch:"deleted_at" json:"deleted_at,omitempty"` // Soft delete; set rows are excluded from aggregation
	CreatedAt time.Time  `ch:"created_at" json:"created_at"`
	UpdatedAt time.Time  `ch:"updated_at" json:"updated_at"` // Version column for ReplacingMergeTree
}

const (
	BudgetTypeDaily    = "daily"
	BudgetTypeLifetime = "lifetime"
)
