package shard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnDefSQL(t *testing.T) {
	tests := []struct {
		name     string
		col      ColumnDef
		expected string
	}{
		{
			name:     "with codec",
			col:      ColumnDef{Name: "org_id", Type: "String", Codec: "ZSTD(1)"},
			expected: "org_id String CODEC(ZSTD(1))",
		},
		{
			name:     "without codec",
			col:      ColumnDef{Name: "deleted_at", Type: "Nullable(DateTime64(3))"},
			expected: "deleted_at Nullable(DateTime64(3))",
		},
		{
			name:     "multi codec",
			col:      ColumnDef{Name: "spend_amount", Type: "Int64", Codec: "Delta, ZSTD(3)"},
			expected: "spend_amount Int64 CODEC(Delta, ZSTD(3))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.col.SQL())
		})
	}
}

func TestColumnDefValidate(t *testing.T) {
	require.NoError(t, ColumnDef{Name: "id", Type: "String"}.Validate())

	err := ColumnDef{Type: "String"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name cannot be empty")

	err = ColumnDef{Name: "clicks"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clicks")
}

func TestColumnsToSchemaSQL(t *testing.T) {
	cols := []ColumnDef{
		{Name: "id", Type: "String", Codec: "ZSTD(1)"},
		{Name: "clicks", Type: "UInt64", Codec: "Delta, ZSTD(3)"},
	}

	schema := ColumnsToSchemaSQL(cols)
	assert.Contains(t, schema, "id String CODEC(ZSTD(1))")
	assert.Contains(t, schema, "clicks UInt64 CODEC(Delta, ZSTD(3))")
	assert.Equal(t, 1, strings.Count(schema, ","), "columns joined by a single separator")
}

func TestColumnsToNameList(t *testing.T) {
	names := ColumnsToNameList(CampaignColumns)
	assert.Equal(t, "id", names[0])
	assert.Equal(t, "updated_at", names[len(names)-1])
	assert.Len(t, names, len(CampaignColumns))
}

// TestTableColumnSetsAreValid checks every declared column set once; a typo in
// any of these would only otherwise surface as a CREATE TABLE failure at boot.
func TestTableColumnSetsAreValid(t *testing.T) {
	sets := map[string][]ColumnDef{
		"campaigns":               CampaignColumns,
		"ad_groups":               AdGroupColumns,
		"ads":                     AdColumns,
		"metrics":                 MetricColumns,
		"connector_events":        ConnectorEventColumns,
		"org_daily_summaries":     OrgDailySummaryColumns,
		"campaign_period_summary": CampaignPeriodSummaryColumns,
		"platform_comparisons":    PlatformComparisonColumns,
		"org_timeseries":          OrgTimeseriesColumns,
		"aggregation_runs":        AggregationRunColumns,
	}

	for name, cols := range sets {
		t.Run(name, func(t *testing.T) {
			require.NotEmpty(t, cols)
			require.NoError(t, ValidateColumns(cols))

			seen := make(map[string]bool, len(cols))
			for _, col := range cols {
				assert.False(t, seen[col.Name], "duplicate column %s", col.Name)
				seen[col.Name] = true
			}
		})
	}
}

// TestEntityTablesVersionedByUpdatedAt verifies the copy-target tables all end
// in the updated_at version column the ReplacingMergeTree engines key on.
func TestEntityTablesVersionedByUpdatedAt(t *testing.T) {
	for name, cols := range map[string][]ColumnDef{
		"campaigns": CampaignColumns,
		"ad_groups": AdGroupColumns,
		"ads":       AdColumns,
		"metrics":   MetricColumns,
	} {
		t.Run(name, func(t *testing.T) {
			last := cols[len(cols)-1]
			assert.Equal(t, "updated_at", last.Name)
			assert.Equal(t, "DateTime64(3)", last.Type)
		})
	}
}

func TestPeriodDays(t *testing.T) {
	assert.Equal(t, []int{7, 30, 90}, PeriodDays)
}
