package registry

import (
	"time"
)

const OrganizationsTableName = "organizations"

// ShardUnassigned is the shard_index value of an org that has not been placed
// yet. The router treats it as an error, never as shard 0.
const ShardUnassigned int32 = -1

// OrganizationColumns defines the schema for the organizations table.
var OrganizationColumns = []ColumnDef{
	{Name: "org_id", Type: "String"},
	{Name: "name", Type: "String"},
	{Name: "shard_index", Type: "Int32"},
	{Name: "migrated", Type: "UInt8"},
	{Name: "migrated_at", Type: "Nullable(DateTime64(3))"},
	{Name: "tables_migrated", Type: "UInt32"},
	{Name: "rows_migrated", Type: "UInt64"},
	{Name: "created_at", Type: "DateTime64(3)"},
	{Name: "updated_at", Type: "DateTime64(3)"},
}

// Organization is one tenant's registry row: shard placement plus migration
// state. Once migrated is set the shard assignment is immutable; moving a
// migrated org would strand its rows in the old shard.
type Organization struct {
	OrgID string `json:"org_id" ch:"org_id"`
	Name  string `json:"name" ch:"name"`

	// Shard placement. ShardUnassigned (-1) until an operator or onboarding
	// flow assigns one; the router fails closed on it.
	ShardIndex int32 `json:"shard_index" ch:"shard_index"`

	// Migration state (audit counters written by MarkMigrated)
	Migrated       uint8      `json:"migrated" ch:"migrated"`
	MigratedAt     *time.Time `json:"migrated_at,omitempty" ch:"migrated_at"`
	TablesMigrated uint32     `json:"tables_migrated" ch:"tables_migrated"`
	RowsMigrated   uint64     `json:"rows_migrated" ch:"rows_migrated"`

	CreatedAt time.Time `json:"created_at" ch:"created_at"`
	UpdatedAt time.Time `json:"updated_at" ch:"updated_at"`
}

// IsMigrated reports whether the backfill has completed for this org.
func (o *Organization) IsMigrated() bool {
	return o.Migrated == 1
}

// IsAssigned reports whether the org has a valid shard placement.
func (o *Organization) IsAssigned() bool {
	return o.ShardIndex >= 0
}
