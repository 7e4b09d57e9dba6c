package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/spendwise-io/spendx/pkg/db/postgres"
)

// DB represents the legacy PostgreSQL store that holds the pre-shard copy of
// every tenant's tables. It is read-only for this system; only the migration
// path touches it.
type DB struct {
	postgres.Client
	Name string
}

// NewWithPoolConfig connects to the legacy store with custom pool configuration.
// No schema initialization happens here: the legacy store is owned by the old
// system and must never be altered from this side.
func NewWithPoolConfig(ctx context.Context, logger *zap.Logger, name string, poolConfig postgres.PoolConfig) (*DB, error) {
	client, err := postgres.New(ctx, logger.With(
		zap.String("db", name),
		zap.String("component", poolConfig.Component),
	), name, &poolConfig)
	if err != nil {
		return nil, err
	}

	return &DB{
		Client: client,
		Name:   name,
	}, nil
}

// Close terminates the underlying PostgreSQL connection
func (db *DB) Close() error {
	db.Pool.Close()
	return nil
}

// DatabaseName returns the name of the legacy source database
func (db *DB) DatabaseName() string {
	return db.Name
}
