package temporal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise-io/spendx/pkg/temporal"
)

func TestGetCronSpec(t *testing.T) {
	c := &temporal.Client{}

	spec, err := c.GetCronSpec("0 2 * * *")
	require.NoError(t, err)
	require.Len(t, spec.CronExpressions, 1)
	assert.Equal(t, "0 2 * * *", spec.CronExpressions[0])

	_, err = c.GetCronSpec("not a cron")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")

	// Six-field (seconds) expressions belong to the in-process scan loop,
	// not to Temporal schedules.
	_, err = c.GetCronSpec("0 0 2 * * *")
	require.Error(t, err)
}

func TestGetMigrateWorkflowId(t *testing.T) {
	c := &temporal.Client{MigrateWorkflowId: "migrate:%s"}
	assert.Equal(t, "migrate:org-123", c.GetMigrateWorkflowId("org-123"))
}
