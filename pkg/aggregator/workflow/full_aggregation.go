package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/spendwise-io/spendx/pkg/aggregator/activity"
	"github.com/spendwise-io/spendx/pkg/aggregator/types"
)

const FullAggregationWorkflowName = "FullAggregationWorkflow"

// Context holds the workflow context.
type Context struct {
	ActivityContext *activity.Context
}

// FullAggregationWorkflow runs the whole daily rollup as one activity.
// The activity absorbs per-shard failures into its result, so the workflow
// never retries it: rerunning a day is the schedule's job, and the rollup
// INSERTs are idempotent for a given date anyway.
func (wc *Context) FullAggregationWorkflow(ctx workflow.Context, in types.AggregationJobInput) (*types.AggregationJobResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
		// Activities run on the same queue the workflow was scheduled to.
		TaskQueue: workflow.GetInfo(ctx).TaskQueueName,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var out types.AggregationJobResult
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.RunFullAggregation, in).Get(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
