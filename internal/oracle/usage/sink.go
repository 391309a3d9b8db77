// Package usage tracks oracle call volume and cost, the Go equivalent of
// original_source/backend/services/llm_tracker.py's in-memory + persisted
// usage log, generalized onto Redis so counts survive process restarts
// without needing a dedicated SQL table.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sink records oracle call outcomes. Fire-and-forget: callers should not
// block on or fail because of a Sink error.
type Sink struct {
	client *redis.Client
}

// New wires a Sink over an existing Redis client.
func New(client *redis.Client) *Sink {
	return &Sink{client: client}
}

// Entry mirrors original_source's LLMUsageEntry.
type Entry struct {
	Oracle      string
	Mode        string // "live" or "mock"
	InputTokens int
	OutputTokens int
	LatencyMS   int64
	Status      string // "success" or "error"
}

// Record increments the counters for Oracle under a Redis hash keyed by
// oracle name, and appends nothing heavier than a handful of HINCRBY calls —
// this is a sink, not a ledger.
func (s *Sink) Record(ctx context.Context, e Entry) {
	if s == nil || s.client == nil {
		return
	}
	key := fmt.Sprintf("oracle:usage:%s", e.Oracle)
	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, "calls", 1)
	pipe.HIncrBy(ctx, key, "input_tokens", int64(e.InputTokens))
	pipe.HIncrBy(ctx, key, "output_tokens", int64(e.OutputTokens))
	pipe.HIncrBy(ctx, key, "latency_ms_total", e.LatencyMS)
	if e.Status == "error" {
		pipe.HIncrBy(ctx, key, "errors", 1)
	}
	if e.Mode == "mock" {
		pipe.HIncrBy(ctx, key, "mock_calls", 1)
	}
	// Best-effort: usage stats are not load-bearing, so a short deadline and
	// a swallowed error are correct here rather than propagating upward.
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, _ = pipe.Exec(ctx)
}

// Snapshot returns the current counters for an oracle, for the (out-of-scope)
// dashboard usage report to read.
func (s *Sink) Snapshot(ctx context.Context, oracle string) (map[string]string, error) {
	return s.client.HGetAll(ctx, fmt.Sprintf("oracle:usage:%s", oracle)).Result()
}
