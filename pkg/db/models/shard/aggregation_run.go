package shard

import (
	"time"
)

const AggregationRunsTableName = "aggregation_runs"

// AggregationRunColumns defines the schema for aggregation_runs.
// ReplacingMergeTree(last_run_at) keyed on org_id: each completed run replaces
// the org's single tracking row.
var AggregationRunColumns = []ColumnDef{
	{Name: "org_id", Type: "String"},
	{Name: "last_run_at", Type: "DateTime64(3)"},
	{Name: "last_success_at", Type: "DateTime64(3)"},
}

// AggregationRun tracks when an org's rollups were last refreshed. Written by
// the final pipeline step for every org that received a daily summary row.
type AggregationRun struct {
	OrgID         string    `ch:"org_id" json:"org_id"`
	LastRunAt     time.Time `ch:"last_run_at" json:"last_run_at"`
	LastSuccessAt time.Time `ch:"last_success_at" json:"last_success_at"`
}
