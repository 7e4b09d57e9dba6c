package shard

import (
	"time"
)

const ConnectorEventsTableName = "connector_events"

// ConnectorEventColumns defines the schema for connector_events. The same
// schema is used inside every shard and in the central revenue store.
var ConnectorEventColumns = []ColumnDef{
	{Name: "id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "org_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "source", Type: "String", Codec: "ZSTD(1)"},
	{Name: "status", Type: "String", Codec: "ZSTD(1)"},
	{Name: "value", Type: "Int64", Codec: "Delta, ZSTD(3)"},
	{Name: "customer_external_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "transacted_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
	{Name: "payload", Type: "String", Codec: "ZSTD(3)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// ConnectorEvent is one revenue event reported by a commerce connector
// (shopify, stripe, woocommerce). An event counts as a conversion only when
// its status is in the source's success set (entities.SuccessStatuses).
type ConnectorEvent struct {
	ID     string `ch:"id" json:"id"`
	OrgID  string `ch:"org_id" json:"org_id"`
	Source string `ch:"source" json:"source"` // Connector name (shopify/stripe/woocommerce)
	Status string `ch:"status" json:"status"` // Connector-reported status, matched against the success set

	Value              int64  `ch:"value" json:"value"` // Order/charge value in minor units
	CustomerExternalID string `ch:"customer_external_id" json:"customer_external_id"`

	TransactedAt time.Time `ch:"transacted_at" json:"transacted_at"`
	Payload      string    `ch:"payload" json:"payload,omitempty"` // Raw connector JSON, opaque

	UpdatedAt time.Time `ch:"updated_at" json:"updated_at"`
}
