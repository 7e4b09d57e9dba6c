package migrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	temporalworkflow "go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	"github.com/spendwise-io/spendx/pkg/db/postgres"
	"github.com/spendwise-io/spendx/pkg/db/postgres/source"
	"github.com/spendwise-io/spendx/pkg/db/registry"
	"github.com/spendwise-io/spendx/pkg/logging"
	"github.com/spendwise-io/spendx/pkg/migrator/activity"
	"github.com/spendwise-io/spendx/pkg/migrator/types"
	"github.com/spendwise-io/spendx/pkg/migrator/workflow"
	"github.com/spendwise-io/spendx/pkg/redis"
	"github.com/spendwise-io/spendx/pkg/temporal"
	"github.com/spendwise-io/spendx/pkg/utils"
)

type App struct {
	Worker         worker.Worker
	TemporalClient *temporal.Client
	RegistryDB     registry.Store

	// Cron drives the onboarding scan according to CronSpec.
	Cron     *cron.Cron
	CronSpec string

	// ScanLimit caps how many backfills one scan tick may start.
	ScanLimit int

	Logger *zap.Logger
	Server *http.Server
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
		*clickhouse.GetPoolConfigForComponent("migrator_registry"))
	if err != nil {
		logger.Fatal("Unable to initialize registry database", zap.Error(err))
	}

	shardsDb, shardsDbErr := registryDb.EnsureShardDbs(ctx, "migrator_shard")
	if shardsDbErr != nil {
		logger.Fatal("Unable to initialize shard databases", zap.Error(shardsDbErr))
	}

	sourceDb, sourceDbErr := source.NewWithPoolConfig(ctx, logger,
		"legacy_source",
		*postgres.GetPoolConfigForComponent("migrator_source"))
	if sourceDbErr != nil {
		logger.Fatal("Unable to connect to legacy source store", zap.Error(sourceDbErr))
	}

	redisClient, err := redis.NewClient(ctx, logger)
	if err != nil {
		logger.Warn("Unable to connect to Redis, event publishing disabled", zap.Error(err))
		redisClient = nil
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	activityContext := &activity.Context{
		Logger:      logger,
		RegistryDB:  registryDb,
		ShardsDB:    shardsDb,
		SourceDB:    sourceDb,
		RedisClient: redisClient,
	}
	workflowContext := workflow.Context{
		ActivityContext: activityContext,
	}

	wkr := worker.New(
		temporalClient.TClient,
		temporalClient.MigrationQueue,
		worker.Options{},
	)

	// Register by name so the scan loop can start workflows without a direct
	// function reference.
	wkr.RegisterWorkflowWithOptions(workflowContext.MigrateOrganizationWorkflow, temporalworkflow.RegisterOptions{
		Name: workflow.MigrateOrganizationWorkflowName,
	})
	wkr.RegisterActivity(activityContext.MigrateOrganization)

	app := &App{
		Worker:         wkr,
		TemporalClient: temporalClient,
		RegistryDB:     registryDb,
		CronSpec:       utils.Env("MIGRATION_SCAN_CRON", "0 * * * * *"),
		ScanLimit:      utils.EnvInt("MIGRATION_SCAN_LIMIT", 5),
		Logger:         logger,
	}
	app.SetupServer()

	if scheduleErr := app.SetupScheduler(ctx, cron.DefaultLogger, app.CronSpec); scheduleErr != nil {
		logger.Fatal("Unable to set up onboarding scan", zap.Error(scheduleErr))
	}

	return app
}

// SetupServer sets up the HTTP server.
func (a *App) SetupServer() {
	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3002")

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

// SetupScheduler sets up the cron scheduler for the onboarding scan.
func (a *App) SetupScheduler(ctx context.Context, logger cron.Logger, cronSpec string) error {
	// Seconds field, optional
	a.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger)))

	_, err := a.Cron.AddFunc(cronSpec, func() {
		// keep each run bounded
		rctx, cancel := context.WithTimeout(ctx, 25*time.Second)
		defer cancel()
		if err := a.ScanOnboarding(rctx); err != nil {
			logger.Info("[migrator] onboarding scan error", "error", err)
		}
	})
	if err != nil {
		return err
	}

	return nil
}

// StartCron starts the cron scheduler.
func (a *App) StartCron() {
	a.Cron.Start()
	a.Logger.Info("[migrator] Cron started", zap.String("cronSpec", a.CronSpec))
}

// StopCron stops the cron scheduler.
func (a *App) StopCron() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
}

// ScanOnboarding lists orgs that are assigned to a shard but not yet migrated
// and starts a backfill workflow for each, up to ScanLimit per tick. The
// deterministic workflow ID makes the scan idempotent: an org whose backfill
// is still running is skipped, one whose backfill failed gets a fresh run on
// the next tick.
func (a *App) ScanOnboarding(ctx context.Context) error {
	orgs, err := a.RegistryDB.GetUnmigratedOrganizations(ctx, a.ScanLimit)
	if err != nil {
		return fmt.Errorf("list unmigrated organizations: %w", err)
	}
	if len(orgs) == 0 {
		return nil
	}

	for _, org := range orgs {
		workflowID := a.TemporalClient.GetMigrateWorkflowId(org.OrgID)
		_, execErr := a.TemporalClient.TClient.ExecuteWorkflow(ctx,
			client.StartWorkflowOptions{
				ID:        workflowID,
				TaskQueue: a.TemporalClient.MigrationQueue,
			},
			workflow.MigrateOrganizationWorkflowName,
			types.MigrationJobInput{OrgID: org.OrgID},
		)
		if execErr != nil {
			var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
			if errors.As(execErr, &alreadyStarted) {
				a.Logger.Debug("Backfill already running",
					zap.String("org_id", org.OrgID),
					zap.String("workflow_id", workflowID))
				continue
			}
			return fmt.Errorf("start backfill for %s: %w", org.OrgID, execErr)
		}

		a.Logger.Info("Started backfill workflow",
			zap.String("org_id", org.OrgID),
			zap.String("workflow_id", workflowID),
			zap.Int32("shard", org.ShardIndex))
	}

	return nil
}

// Ready indicates whether the application is ready to handle operations, returning true if ready.
func (a *App) Ready() bool { return true }

// Start starts the worker, the scan loop and the health server, and blocks
// until the context is canceled.
func (a *App) Start(ctx context.Context) {
	if err := a.Worker.Start(); err != nil {
		a.Logger.Fatal("Unable to start worker", zap.Error(err))
	}
	a.StartCron()
	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()
	_ = a.Server.Close()
	a.Logger.Info("[migrator] shutting down…")
	a.StopCron()
	a.Worker.Stop()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
