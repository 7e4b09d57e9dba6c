package aggregator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	shardmodels "github.com/spendwise-io/spendx/pkg/db/models/shard"
	"github.com/spendwise-io/spendx/pkg/db/revenue"
	"github.com/spendwise-io/spendx/pkg/redis"
)

const (
	// ingestBatchSize triggers a flush once this many events are buffered.
	ingestBatchSize = 100

	// ingestFlushInterval bounds how long a quiet stream can hold events back.
	ingestFlushInterval = 2 * time.Second

	// ingestMaxBuffered caps the buffer while the revenue store is down;
	// beyond it the oldest events are dropped.
	ingestMaxBuffered = 10000
)

// revenueIngest batches connector events off the Redis stream into the
// revenue store. ClickHouse wants batched inserts, so events accumulate until
// the batch size or the flush ticker gets them.
type revenueIngest struct {
	logger *zap.Logger
	store  revenue.Store

	mu  sync.Mutex
	buf []*shardmodels.ConnectorEvent
}

func newRevenueIngest(logger *zap.Logger, store revenue.Store) *revenueIngest {
	return &revenueIngest{
		logger: logger,
		store:  store,
	}
}

// Handle is the stream consumer callback. Malformed messages are logged and
// acknowledged anyway; a poison message must not wedge the group.
func (ri *revenueIngest) Handle(ctx context.Context, msg redis.Message) error {
	data := msg.GetData()
	if len(data) == 0 {
		ri.logger.Warn("Skipping connector event without data field", zap.String("id", msg.ID))
		return nil
	}

	var event shardmodels.ConnectorEvent
	if err := json.Unmarshal(data, &event); err != nil {
		ri.logger.Warn("Skipping malformed connector event",
			zap.String("id", msg.ID),
			zap.Error(err))
		return nil
	}
	if event.ID == "" || event.OrgID == "" {
		ri.logger.Warn("Skipping connector event without id or org_id", zap.String("id", msg.ID))
		return nil
	}

	ri.mu.Lock()
	defer ri.mu.Unlock()
	ri.buf = append(ri.buf, &event)
	if len(ri.buf) >= ingestBatchSize {
		ri.flushLocked(ctx)
	}
	return nil
}

// Flush writes out whatever is buffered. Called by the ticker and on shutdown.
func (ri *revenueIngest) Flush(ctx context.Context) {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	ri.flushLocked(ctx)
}

func (ri *revenueIngest) flushLocked(ctx context.Context) {
	if len(ri.buf) == 0 {
		return
	}

	batch := ri.buf
	ri.buf = nil

	if err := ri.store.InsertConnectorEvents(ctx, batch); err != nil {
		// Events dedup by id on insert, so re-sending the batch later is safe.
		ri.logger.Warn("Unable to insert connector events, keeping batch buffered",
			zap.Int("events", len(batch)),
			zap.Error(err))
		ri.buf = append(batch, ri.buf...)
		if len(ri.buf) > ingestMaxBuffered {
			dropped := len(ri.buf) - ingestMaxBuffered
			ri.logger.Error("Connector event buffer full, dropping oldest events",
				zap.Int("dropped", dropped))
			ri.buf = ri.buf[dropped:]
		}
		return
	}

	ri.logger.Debug("Inserted connector events", zap.Int("events", len(batch)))
}

// Buffered reports how many events are waiting for the next flush.
func (ri *revenueIngest) Buffered() int {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	return len(ri.buf)
}
