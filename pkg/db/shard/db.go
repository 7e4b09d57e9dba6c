package shard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	"go.uber.org/zap"
)

// DB represents one shard database holding the raw entity tables, metric
// tables, connector events and rollups for every org placed on the shard.
// It implements Store.
type DB struct {
	clickhouse.Client
	Name  string
	Index int
}

// NewWithPoolConfig creates and initializes a shard database instance with custom pool configuration.
// This allows passing calculated pool sizes directly instead of relying on environment variables.
func NewWithPoolConfig(ctx context.Context, logger *zap.Logger, index int, poolConfig clickhouse.PoolConfig) (*DB, error) {
	dbName := clickhouse.SanitizeName(fmt.Sprintf("shard_%d", index))

	client, err := clickhouse.New(ctx, logger.With(
		zap.String("db", dbName),
		zap.String("component", poolConfig.Component),
		zap.Int("shard", index),
	), dbName, &poolConfig)
	if err != nil {
		return nil, err
	}

	shardDB := &DB{
		Client: client,
		Name:   dbName,
		Index:  index,
	}

	if err := shardDB.InitializeDB(ctx); err != nil {
		return nil, err
	}

	return shardDB, nil
}

// Close terminates the underlying ClickHouse connection.
func (db *DB) Close() error {
	return db.Db.Close()
}

func (db *DB) GetConnection() driver.Conn {
	return db.Db
}

// DatabaseName returns the ClickHouse database backing this shard.
func (db *DB) DatabaseName() string {
	return db.Name
}

// ShardIndex returns the shard's position in the fleet.
func (db *DB) ShardIndex() int {
	return db.Index
}

// InitializeDB ensures the shard database and every table in it exist.
// All CREATE TABLE statements are issued concurrently; none of them depend on
// each other and IF NOT EXISTS makes re-runs harmless.
func (db *DB) InitializeDB(ctx context.Context) error {
	initStart := time.Now()

	if err := db.CreateDbIfNotExists(ctx, db.Name); err != nil {
		return fmt.Errorf("failed to create database %s: %w", db.Name, err)
	}

	db.Logger.Info("Creating shard tables in parallel", zap.String("database", db.Name))

	// Define all table init operations
	initOps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"campaigns", db.initCampaigns},
		{"ad_groups", db.initAdGroups},
		{"ads", db.initAds},
		{"campaign_metrics", db.initCampaignMetrics},
		{"ad_group_metrics", db.initAdGroupMetrics},
		{"ad_metrics", db.initAdMetrics},
		{"connector_events", db.initConnectorEvents},
		{"org_daily_summaries", db.initOrgDailySummaries},
		{"campaign_period_summaries", db.initCampaignPeriodSummaries},
		{"platform_comparisons", db.initPlatformComparisons},
		{"org_timeseries", db.initOrgTimeseries},
		{"aggregation_runs", db.initAggregationRuns},
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(initOps))

	// Launch all init operations in parallel
	for _, op := range initOps {
		wg.Add(1)
		go func(name string, fn func(context.Context) error) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errChan <- fmt.Errorf("init %s: %w", name, err)
			}
		}(op.name, op.fn)
	}

	// Wait for all goroutines to complete
	wg.Wait()
	close(errChan)

	// Check for any errors
	for err := range errChan {
		return err
	}

	db.Logger.Info("Shard database initialization complete",
		zap.String("database", db.Name),
		zap.Duration("total_duration", time.Since(initStart)))

	return nil
}
