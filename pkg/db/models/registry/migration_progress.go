package registry

import (
	"time"
)

const MigrationProgressTableName = "migration_progress"

// ProgressPlatformConnector is the migration_progress platform key used for
// the connector-event copy, which is not tied to an ad platform.
const ProgressPlatformConnector = "connector"

// MigrationProgressColumns defines the schema for the migration_progress table.
var MigrationProgressColumns = []ColumnDef{
	{Name: "org_id", Type: "String"},
	{Name: "platform", Type: "String"},
	{Name: "table_name", Type: "String"},
	{Name: "rows_migrated", Type: "UInt64"},
	{Name: "started_at", Type: "DateTime64(3)"},
	{Name: "completed_at", Type: "Nullable(DateTime64(3))"},
	{Name: "error", Type: "String"},
	{Name: "updated_at", Type: "DateTime64(3)"},
}

// MigrationProgress is one org x platform x table backfill record. started_at
// is written before the first page is copied; completed_at stays null until
// the whole table made it across, so an interrupted run is visible as a row
// with a start and no completion. On failure the partial row count and the
// error are recorded and the row keeps completed_at null.
type MigrationProgress struct {
	OrgID     string `json:"org_id" ch:"org_id"`
	Platform  string `json:"platform" ch:"platform"`
	TableName string `json:"table_name" ch:"table_name"`

	RowsMigrated uint64     `json:"rows_migrated" ch:"rows_migrated"`
	StartedAt    time.Time  `json:"started_at" ch:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" ch:"completed_at"`
	Error        string     `json:"error,omitempty" ch:"error"`

	UpdatedAt time.Time `json:"updated_at" ch:"updated_at"`
}

// IsComplete reports whether this table's copy finished cleanly.
func (p *MigrationProgress) IsComplete() bool {
	return p.CompletedAt != nil && p.Error == ""
}
