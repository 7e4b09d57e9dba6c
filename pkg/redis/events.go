package redis

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Event channels and streams used across the workers.
const (
	// AggregationCompletedChannel carries one event per finished daily
	// aggregation run (also mirrored to the stream of the same name).
	AggregationCompletedChannel = "aggregation:completed"

	// MigrationCompletedChannel carries one event per finished tenant
	// migration (also mirrored to the stream of the same name).
	MigrationCompletedChannel = "migration:completed"

	// ConnectorEventsStream is where connector services append normalized
	// revenue events for the aggregator to ingest.
	ConnectorEventsStream = "connector:events"

	// ConnectorEventsGroup is the consumer group the aggregator reads
	// ConnectorEventsStream with.
	ConnectorEventsGroup = "spendx"
)

// PublishCompletion marshals payload and announces it on both the Pub/Sub
// channel (for live subscribers) and the stream of the same name (for
// consumers that were offline when the job finished).
// Best-effort: failures are logged and never returned, and a nil client
// drops the event silently.
func (c *Client) PublishCompletion(ctx context.Context, channel string, payload interface{}) {
	if c == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("Failed to marshal completion event",
			zap.String("channel", channel),
			zap.Error(err))
		return
	}

	c.Publish(ctx, channel, data)
	c.XAdd(ctx, channel, map[string]interface{}{"data": data})
}
