package types

import "time"

// AggregationJobInput parameterizes one full aggregation run.
type AggregationJobInput struct {
	// Date is the target day in 2006-01-02 form. Empty selects yesterday (UTC).
	Date string `json:"date"`
}

// ShardOutcome reports one shard's pipeline run within a job.
type ShardOutcome struct {
	ShardIndex int     `json:"shardIndex"`
	Success    bool    `json:"success"`
	Error      string  `json:"error,omitempty"`
	DurationMs float64 `json:"durationMs"`
}

// AggregationJobResult is the structured outcome of a full aggregation run.
// Shard and revenue failures land in Errors; the activity itself only fails
// on malformed input, so one bad shard never hides the others' work.
type AggregationJobResult struct {
	Date            string         `json:"date"`
	Success         bool           `json:"success"`
	Shards          []ShardOutcome `json:"shards"`
	Errors          []string       `json:"errors,omitempty"`
	TotalDurationMs float64        `json:"totalDurationMs"`
}

// AggregationCompletedEvent is published after every run, failed ones included.
type AggregationCompletedEvent struct {
	Event      string    `json:"event"` // Always "aggregation:completed"
	Date       string    `json:"date"`
	Success    bool      `json:"success"`
	Errors     []string  `json:"errors,omitempty"`
	DurationMs float64   `json:"durationMs"`
	Timestamp  time.Time `json:"timestamp"` // Event publication time (UTC)
}
