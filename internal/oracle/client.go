// Package oracle adapts the five judgement oracles (email classifier,
// resume scorer, interview evaluator, final-summary generator, job
// description generator) behind one uniform contract: attempt a live call
// with a wall-clock timeout, fall back deterministically on any
// transport/parse/schema failure, and forward latency/token usage to a
// fire-and-forget sink. Grounded on
// original_source/backend/agents/{email_classifier,resume_scorer}.py and
// services/llm_tracker.py; the live backend is anthropic-sdk-go, the pack's
// actual hosted-judgement dependency, replacing the original's different
// vendor.
package oracle

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/andreypavlenko/jobber/internal/oracle/usage"
)

// EventFunc lets callers observe oracle fallbacks without the oracle package
// depending on internal/store.
type EventFunc func(ctx context.Context, eventType string, payload map[string]any)

// Config configures one oracle's live backend.
type Config struct {
	AgentID string        // EXTERNAL_*_AGENT_ID
	Mock    bool          // *_MOCK
	Timeout time.Duration // wall-clock cap per call
	Model   string        // anthropic model id backing this oracle
}

// DefaultTimeout is used when Config.Timeout is zero.
const DefaultTimeout = 20 * time.Second

// Client is the shared transport every oracle file builds on.
type Client struct {
	anthropic *anthropic.Client
	usage     *usage.Sink
	onEvent   EventFunc
}

// NewClient wires an anthropic-sdk-go client, an optional usage sink, and an
// optional event observer.
func NewClient(apiKey string, sink *usage.Sink, onEvent EventFunc) *Client {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{anthropic: &c, usage: sink, onEvent: onEvent}
}

// call runs fn with a per-call timeout and records the outcome. fn returns
// the raw text response plus an estimated token count for usage tracking.
func (c *Client) call(ctx context.Context, oracleName string, cfg Config, fn func(ctx context.Context) (text string, inputTokens, outputTokens int, err error)) (string, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, in, out, err := fn(ctx)
	latency := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	c.usage.Record(ctx, usage.Entry{
		Oracle:       oracleName,
		Mode:         "live",
		InputTokens:  in,
		OutputTokens: out,
		LatencyMS:    latency.Milliseconds(),
		Status:       status,
	})
	return text, err
}

// fallback records a mock-mode usage entry and emits a warning Event, used by
// every oracle's fallback path.
func (c *Client) fallback(ctx context.Context, oracleName, reason string) {
	c.usage.Record(ctx, usage.Entry{Oracle: oracleName, Mode: "mock", Status: "success"})
	if c.onEvent != nil {
		c.onEvent(ctx, "oracle_fallback", map[string]any{
			"oracle": oracleName,
			"reason": reason,
		})
	}
}
