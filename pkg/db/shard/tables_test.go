package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise-io/spendx/pkg/db/entities"
	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
)

func TestTableColumns(t *testing.T) {
	tests := []struct {
		entity   entities.Entity
		expected []shardmodels.ColumnDef
	}{
		{entities.Campaigns, shardmodels.CampaignColumns},
		{entities.AdGroups, shardmodels.AdGroupColumns},
		{entities.Ads, shardmodels.AdColumns},
		{entities.CampaignMetrics, shardmodels.MetricColumns},
		{entities.AdGroupMetrics, shardmodels.MetricColumns},
		{entities.AdMetrics, shardmodels.MetricColumns},
	}

	for _, tt := range tests {
		t.Run(tt.entity.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, TableColumns(tt.entity))
		})
	}

	assert.Nil(t, TableColumns(entities.Entity("bogus")))
}

// TestTableColumnsCoverAllEntities guards the switch against a new entity being
// added without a column set; the backfill would silently copy nothing for it.
func TestTableColumnsCoverAllEntities(t *testing.T) {
	for _, entity := range entities.All() {
		require.NotEmpty(t, TableColumns(entity), "no columns for %s", entity)
	}
}

func TestQuotedList(t *testing.T) {
	assert.Equal(t, "'google', 'facebook', 'tiktok'", quotedList(entities.AdPlatformStrings()))
	assert.Equal(t, "'paid'", quotedList([]string{"paid"}))
	assert.Equal(t, "", quotedList(nil))
}
