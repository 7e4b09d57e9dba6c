package temporal

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"go.temporal.io/api/enums/v1"
	taskqueuepb "go.temporal.io/api/taskqueue/v1"
	workflowservicepb "go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"

	"github.com/spendwise-io/spendx/pkg/utils"
)

type Client struct {
	TClient   client.Client
	TSClient  client.ScheduleClient
	Namespace string

	// Task Queues
	AggregationQueue string // aggregation - daily rollup workflow plus its single activity.
	MigrationQueue   string // migration - per-tenant onboarding backfill workflows.

	// Schedule IDs
	AggregationScheduleID string

	// Workflow IDs
	MigrateWorkflowId string
}

type Health struct {
	ConnectionOK     bool                      `json:"connection_ok"`
	AggregationQueue []*taskqueuepb.PollerInfo `json:"aggregation_queue"`
	MigrationQueue   []*taskqueuepb.PollerInfo `json:"migration_queue"`
}

func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("TEMPORAL_HOSTPORT", "localhost:7233")
	ns := utils.Env("TEMPORAL_NAMESPACE", "spendx")
	loggerWrapper := NewZapAdapter(logger)

	logger.Info("Connecting to Temporal", zap.String("host", host), zap.String("namespace", ns))
	tClient, err := Dial(ctx, host, ns, loggerWrapper)
	if err != nil {
		return nil, err
	}

	if _, err = tClient.CheckHealth(ctx, nil); err != nil {
		return nil, err
	}

	return &Client{
		TClient:   tClient,
		TSClient:  tClient.ScheduleClient(),
		Namespace: ns,
		// for now this is just hardcoded, could be configurable if we need it
		AggregationQueue: "aggregation",
		MigrationQueue:   "migration",
		// schedule IDs
		AggregationScheduleID: "aggregation:daily",
		// workflow IDs
		MigrateWorkflowId: "migrate:%s",
	}, nil
}

// Dial connects to Temporal using the provided hostPort and namespace.
func Dial(ctx context.Context, hostPort, namespace string, logger log.Logger) (client.Client, error) {
	return client.DialContext(
		ctx,
		client.Options{
			HostPort:  hostPort,
			Namespace: namespace,
			Logger:    logger,
		},
	)
}

// GetAggregationQueue returns the aggregation worker queue.
func (c *Client) GetAggregationQueue() string { return c.AggregationQueue }

// GetMigrationQueue returns the migration worker queue.
func (c *Client) GetMigrationQueue() string { return c.MigrationQueue }

// GetAggregationScheduleID returns the schedule ID for the daily aggregation run.
func (c *Client) GetAggregationScheduleID() string {
	return c.AggregationScheduleID
}

// GetMigrateWorkflowId returns the workflow ID for migrating the given organization.
// The ID is deterministic so repeated onboarding requests for one tenant
// collapse onto the already-running workflow.
func (c *Client) GetMigrateWorkflowId(orgID string) string {
	return fmt.Sprintf(c.MigrateWorkflowId, orgID)
}

// GetCronSpec validates expr with the standard five-field cron parser and
// returns the matching Temporal schedule spec.
func (c *Client) GetCronSpec(expr string) (client.ScheduleSpec, error) {
	if _, err := cron.ParseStandard(expr); err != nil {
		return client.ScheduleSpec{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return client.ScheduleSpec{CronExpressions: []string{expr}}, nil
}

// Health returns the health of the Temporal client.
func (c *Client) Health(ctx context.Context) (Health, error) {
	h := Health{ConnectionOK: true}
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	svc := c.TClient.WorkflowService()
	if svc != nil {
		if rep, err := svc.DescribeTaskQueue(ctx, &workflowservicepb.DescribeTaskQueueRequest{
			Namespace:     c.Namespace,
			TaskQueue:     &taskqueuepb.TaskQueue{Name: c.AggregationQueue},
			TaskQueueType: enums.TASK_QUEUE_TYPE_WORKFLOW,
		}); err == nil {
			h.AggregationQueue = rep.GetPollers()
		}
		if rep, err := svc.DescribeTaskQueue(ctx, &workflowservicepb.DescribeTaskQueueRequest{
			Namespace:     c.Namespace,
			TaskQueue:     &taskqueuepb.TaskQueue{Name: c.MigrationQueue},
			TaskQueueType: enums.TASK_QUEUE_TYPE_WORKFLOW,
		}); err == nil {
			h.MigrationQueue = rep.GetPollers()
		}
	}
	return h, nil
}
