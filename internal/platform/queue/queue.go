// Package queue is a thin Redis-list dispatch queue between the mailbox
// listener and the ingestion pipeline: RPUSH on the producer side, BLPOP on
// the consumer side, with capacity enforced by polling LLEN before RPUSH so
// a full queue blocks the producer instead of dropping work.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue wraps a single Redis list as a bounded FIFO dispatch channel.
type Queue struct {
	client   *redis.Client
	key      string
	capacity int64
}

// New wires a Queue over an existing Redis client. capacity <= 0 means
// unbounded (RPUSH never blocks on LLEN).
func New(client *redis.Client, key string, capacity int64) *Queue {
	return &Queue{client: client, key: key, capacity: capacity}
}

// Push enqueues v (JSON-encoded) onto the tail of the list, blocking in
// short polling increments while the list is at capacity.
func (q *Queue) Push(ctx context.Context, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal queue item: %w", err)
	}

	for {
		if q.capacity > 0 {
			n, err := q.client.LLen(ctx, q.key).Result()
			if err != nil {
				return fmt.Errorf("check queue depth: %w", err)
			}
			if n >= q.capacity {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(200 * time.Millisecond):
					continue
				}
			}
		}
		if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
			return fmt.Errorf("rpush queue item: %w", err)
		}
		return nil
	}
}

// Pop blocks (up to timeout, 0 means block indefinitely) for the next item
// and unmarshals it into v.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration, v any) (bool, error) {
	res, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blpop queue item: %w", err)
	}
	// BLPop returns [key, value]; the payload is always the second element.
	if len(res) != 2 {
		return false, fmt.Errorf("unexpected blpop reply shape: %v", res)
	}
	if err := json.Unmarshal([]byte(res[1]), v); err != nil {
		return false, fmt.Errorf("unmarshal queue item: %w", err)
	}
	return true, nil
}

// Len reports the current queue depth.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
