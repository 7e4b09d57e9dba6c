package aggregator

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	temporalworkflow "go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/spendwise-io/spendx/pkg/aggregator/activity"
	"github.com/spendwise-io/spendx/pkg/aggregator/types"
	"github.com/spendwise-io/spendx/pkg/aggregator/workflow"
	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	"github.com/spendwise-io/spendx/pkg/db/registry"
	"github.com/spendwise-io/spendx/pkg/db/revenue"
	"github.com/spendwise-io/spendx/pkg/logging"
	"github.com/spendwise-io/spendx/pkg/redis"
	"github.com/spendwise-io/spendx/pkg/temporal"
	"github.com/spendwise-io/spendx/pkg/utils"
)

type App struct {
	Worker         worker.Worker
	TemporalClient *temporal.Client
	RegistryDB     registry.Store
	RevenueDB      revenue.Store
	RedisClient    *redis.Client
	Logger         *zap.Logger
	Server         *http.Server

	ingest *revenueIngest
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	registryDb, err := registry.NewWithPoolConfig(ctx, logger,
		utils.Env("REGISTRY_DB", "spendx_registry"),
		*clickhouse.GetPoolConfigForComponent("aggregator_registry"))
	if err != nil {
		logger.Fatal("Unable to initialize registry database", zap.Error(err))
	}

	shardsDb, shardsDbErr := registryDb.EnsureShardDbs(ctx, "aggregator_shard")
	if shardsDbErr != nil {
		logger.Fatal("Unable to initialize shard databases", zap.Error(shardsDbErr))
	}

	// The revenue store is optional; without it the daily job skips the
	// connector-revenue rollup and the stream ingest stays off.
	var revenueDb revenue.Store
	if name := utils.Env("REVENUE_DB", ""); name != "" {
		db, revenueErr := revenue.NewWithPoolConfig(ctx, logger, name,
			*clickhouse.GetPoolConfigForComponent("revenue"))
		if revenueErr != nil {
			logger.Fatal("Unable to initialize revenue database", zap.Error(revenueErr))
		}
		revenueDb = db
	} else {
		logger.Info("REVENUE_DB not set, connector revenue rollup and stream ingest disabled")
	}

	redisClient, err := redis.NewClient(ctx, logger)
	if err != nil {
		logger.Warn("Unable to connect to Redis, event publishing and stream ingest disabled", zap.Error(err))
		redisClient = nil
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	activityContext := &activity.Context{
		Logger:                    logger,
		ShardsDB:                  shardsDb,
		RevenueDB:                 revenueDb,
		RedisClient:               redisClient,
		AggregationMaxParallelism: utils.EnvInt("AGGREGATION_PARALLELISM", 4),
	}
	workflowContext := workflow.Context{
		ActivityContext: activityContext,
	}

	wkr := worker.New(
		temporalClient.TClient,
		temporalClient.AggregationQueue,
		worker.Options{},
	)

	// Register by name so the schedule action can reference the workflow
	// without importing this package.
	wkr.RegisterWorkflowWithOptions(workflowContext.FullAggregationWorkflow, temporalworkflow.RegisterOptions{
		Name: workflow.FullAggregationWorkflowName,
	})
	wkr.RegisterActivity(activityContext.RunFullAggregation)

	app := &App{
		Worker:         wkr,
		TemporalClient: temporalClient,
		RegistryDB:     registryDb,
		RevenueDB:      revenueDb,
		RedisClient:    redisClient,
		Logger:         logger,
	}
	app.SetupServer()

	if err := app.EnsureAggregationSchedule(ctx); err != nil {
		logger.Fatal("Unable to ensure aggregation schedule", zap.Error(err))
	}

	return app
}

// EnsureAggregationSchedule ensures the daily aggregation schedule exists,
// creating it when missing. The cron expression comes from AGGREGATION_CRON
// and is validated before it is handed to Temporal.
func (a *App) EnsureAggregationSchedule(ctx context.Context) error {
	spec, err := a.TemporalClient.GetCronSpec(utils.Env("AGGREGATION_CRON", "0 2 * * *"))
	if err != nil {
		return err
	}

	id := a.TemporalClient.GetAggregationScheduleID()
	h := a.TemporalClient.TSClient.GetHandle(ctx, id)
	_, err = h.Describe(ctx)
	if err == nil {
		a.Logger.Info("Aggregation schedule already exists",
			zap.String("id", id),
			zap.String("namespace", a.TemporalClient.Namespace))
		return nil
	}

	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		a.Logger.Info("Creating aggregation schedule",
			zap.String("id", id),
			zap.String("namespace", a.TemporalClient.Namespace))
		_, scheduleErr := a.TemporalClient.TSClient.Create(
			ctx, client.ScheduleOptions{
				ID:   id,
				Spec: spec,
				Action: &client.ScheduleWorkflowAction{
					// An empty input selects yesterday (UTC) at run time.
					Workflow:                 workflow.FullAggregationWorkflowName,
					Args:                     []interface{}{types.AggregationJobInput{}},
					TaskQueue:                a.TemporalClient.AggregationQueue,
					WorkflowExecutionTimeout: 1 * time.Hour,
					WorkflowTaskTimeout:      2 * time.Minute,
				},
			},
		)
		return scheduleErr
	}
	return err
}

// SetupServer configures the health probe server.
func (a *App) SetupServer() {
	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3001")

	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })).Methods("GET")
	r.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if a.Ready() {
			w.WriteHeader(200)
		} else {
			w.WriteHeader(503)
		}
	})).Methods("GET")

	a.Server = &http.Server{Addr: addr, Handler: r}
}

// Ready indicates whether the application is ready to receive traffic.
func (a *App) Ready() bool { return true }

// startRevenueIngest wires the connector event stream into the revenue store.
// Requires both Redis and the revenue store; with either missing it logs and
// does nothing.
func (a *App) startRevenueIngest(ctx context.Context) {
	if a.RedisClient == nil || a.RevenueDB == nil {
		a.Logger.Info("Revenue stream ingest not running",
			zap.Bool("redis", a.RedisClient != nil),
			zap.Bool("revenue_db", a.RevenueDB != nil))
		return
	}

	consumer, err := redis.NewStreamConsumer(a.RedisClient, redis.StreamConsumerConfig{
		Stream:   redis.ConnectorEventsStream,
		Group:    redis.ConnectorEventsGroup,
		Consumer: utils.Env("HOSTNAME", "aggregator"),
		Logger:   a.Logger,
	})
	if err != nil {
		a.Logger.Error("Unable to create connector event consumer", zap.Error(err))
		return
	}

	a.ingest = newRevenueIngest(a.Logger, a.RevenueDB)

	go func() {
		ticker := time.NewTicker(ingestFlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// Drain what is buffered before going away.
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				a.ingest.Flush(flushCtx)
				cancel()
				return
			case <-ticker.C:
				a.ingest.Flush(ctx)
			}
		}
	}()

	go func() {
		if runErr := consumer.Run(ctx, a.ingest.Handle); runErr != nil && !errors.Is(runErr, context.Canceled) {
			a.Logger.Error("Connector event consumer stopped", zap.Error(runErr))
		}
	}()
}

// Start starts the worker, the revenue ingest and the health server, and
// blocks until the context is canceled.
func (a *App) Start(ctx context.Context) {
	if err := a.Worker.Start(); err != nil {
		a.Logger.Fatal("Unable to start worker", zap.Error(err))
	}
	a.startRevenueIngest(ctx)
	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()
	a.Stop()
}

// Stop stops the worker and the health server.
func (a *App) Stop() {
	_ = a.Server.Close()
	a.Worker.Stop()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
