// Package redis implements a task queue on a Redis list so several
// processes can share one backlog.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

const (
	defaultKey  = "queue:summaries"
	pollTimeout = time.Second
)

// Config describes the Redis connection and list key.
type Config struct {
	Addr string
	Key  string
}

// Queue pushes JSON tasks with LPUSH and pops them with BRPOP (FIFO).
type Queue struct {
	rdb  *goredis.Client
	key  string
	poll time.Duration
}

// New connects to Redis and verifies the server answers.
func New(ctx context.Context, cfg Config) (*Queue, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewWithClient(rdb, cfg.Key), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *goredis.Client, key string) *Queue {
	if key == "" {
		key = defaultKey
	}
	return &Queue{rdb: rdb, key: key, poll: pollTimeout}
}

// Enqueue appends a task to the list.
func (q *Queue) Enqueue(ctx context.Context, task summary.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.key, err)
	}
	return nil
}

// Dequeue blocks until a task is available or ctx ends.
func (q *Queue) Dequeue(ctx context.Context) (summary.Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return summary.Task{}, fmt.Errorf("dequeue canceled: %w", err)
		}
		result, err := q.rdb.BRPop(ctx, q.poll, q.key).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return summary.Task{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
			}
			return summary.Task{}, fmt.Errorf("brpop %s: %w", q.key, err)
		}
		// result is [key, value]
		if len(result) != 2 {
			return summary.Task{}, fmt.Errorf("brpop %s: unexpected reply %v", q.key, result)
		}
		var task summary.Task
		if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
			return summary.Task{}, fmt.Errorf("decode task: %w", err)
		}
		return task, nil
	}
}

// Len reports the number of queued tasks.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", q.key, err)
	}
	return n, nil
}

// Ping checks the Redis connection.
func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// Close releases the client.
func (q *Queue) Close() error {
	return q.rdb.Close()
}
