package revenue

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/spendwise-io/spendx/pkg/db/clickhouse"
	"go.uber.org/zap"
)

// DB represents the optional central revenue database: raw connector events
// collected off the event stream plus their daily per-source rollup. Unlike
// the shard copies, this store sees events from every org regardless of shard
// placement.
type DB struct {
	clickhouse.Client
	Name string
}

// NewWithPoolConfig creates and initializes a revenue database instance with custom pool configuration.
func NewWithPoolConfig(ctx context.Context, logger *zap.Logger, name string, poolConfig clickhouse.PoolConfig) (*DB, error) {
	client, err := clickhouse.New(ctx, logger.With(
		zap.String("db", name),
		zap.String("component", poolConfig.Component),
	), name, &poolConfig)
	if err != nil {
		return nil, err
	}

	revenueDB := &DB{
		Client: client,
		Name:   name,
	}

	if err := revenueDB.InitializeDB(ctx); err != nil {
		return nil, err
	}

	return revenueDB, nil
}

// Close terminates the underlying ClickHouse connection.
func (db *DB) Close() error {
	return db.Db.Close()
}

// GetConnection returns the underlying ClickHouse driver connection.
func (db *DB) GetConnection() driver.Conn {
	return db.Db
}

// DatabaseName returns the name of the revenue database
func (db *DB) DatabaseName() string {
	return db.Name
}

// InitializeDB ensures the revenue database and its two tables exist.
func (db *DB) InitializeDB(ctx context.Context) error {
	db.Logger.Info("Initializing revenue database", zap.String("database", db.Name))

	if err := db.CreateDbIfNotExists(ctx, db.Name); err != nil {
		return fmt.Errorf("failed to create database %s: %w", db.Name, err)
	}

	if err := db.initConnectorEvents(ctx); err != nil {
		return err
	}

	db.Logger.Debug("Initialize connector_revenue_daily table", zap.String("database", db.Name))
	if err := db.initConnectorRevenueDaily(ctx); err != nil {
		return err
	}

	return nil
}
