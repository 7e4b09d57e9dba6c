package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/spendwise-io/spendx/pkg/migrator/activity"
	"github.com/spendwise-io/spendx/pkg/migrator/types"
)

const (
	MigrateOrganizationWorkflowName = "MigrateOrganizationWorkflow"
)

// Context carries dependencies for the migration workflow.
type Context struct {
	ActivityContext *activity.Context
}

// MigrateOrganizationWorkflow runs the backfill of one tenant as a single
// long-running activity. The activity heartbeats per table and per page, so a
// stuck copy is detected well before the overall deadline. Retries only cover
// activity-level failures (the org could not be resolved, or the worker
// died); per-table copy failures come back inside the result and are left to
// the next enqueue, since the copy is idempotent.
func (wc *Context) MigrateOrganizationWorkflow(ctx workflow.Context, in types.MigrationJobInput) (*types.MigrationResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 4 * time.Hour,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
		// Activities run on the same queue the workflow was started on.
		TaskQueue: workflow.GetInfo(ctx).TaskQueueName,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var out types.MigrationResult
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.MigrateOrganization, in).Get(ctx, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
