package registry

import (
	"github.com/spendwise-io/spendx/pkg/db/models/shard"
)

// ColumnDef is re-exported from the shard package for convenience.
// This allows registry models to use the same column definition system.
type ColumnDef = shard.ColumnDef

// Re-export helper functions from the shard package
var (
	ColumnsToSchemaSQL = shard.ColumnsToSchemaSQL
	ColumnsToNameList  = shard.ColumnsToNameList
	ValidateColumns    = shard.ValidateColumns
)
