package types

import "time"

// MigrationJobInput identifies the tenant to backfill.
type MigrationJobInput struct {
	OrgID string `json:"orgId"`
}

// MigrationResult is the structured outcome of one tenant backfill. Table
// failures land in Errors as "<platform>/<table>: <err>"; the activity itself
// only fails when the org cannot be resolved at all.
type MigrationResult struct {
	OrgID          string   `json:"orgId"`
	ShardIndex     int      `json:"shardIndex"`
	TablesMigrated uint32   `json:"tablesMigrated"`
	RowsMigrated   uint64   `json:"rowsMigrated"`
	Errors         []string `json:"errors,omitempty"`
	DurationMs     float64  `json:"durationMs"`
	Success        bool     `json:"success"`
}

// MigrationCompletedEvent is published after every backfill, failed ones included.
type MigrationCompletedEvent struct {
	Event          string    `json:"event"` // Always "migration:completed"
	OrgID          string    `json:"orgId"`
	ShardIndex     int       `json:"shardIndex"`
	Success        bool      `json:"success"`
	TablesMigrated uint32    `json:"tablesMigrated"`
	RowsMigrated   uint64    `json:"rowsMigrated"`
	Errors         []string  `json:"errors,omitempty"`
	Timestamp      time.Time `json:"timestamp"` // Event publication time (UTC)
}
