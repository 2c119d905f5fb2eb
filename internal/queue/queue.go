package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"webpush-notification/internal/model"
)

// ErrQueueFull is returned by Enqueue when the queue cannot take more tasks.
var ErrQueueFull = errors.New("queue: full")

// Queue defines the interface for the push task queue
type Queue interface {
	Enqueue(ctx context.Context, task *model.Task) error
	// Dequeue blocks until a task is available or ctx is done.
	Dequeue(ctx context.Context) (*model.Task, error)
}

// MemoryQueue is a channel-based queue for single-process deployments
type MemoryQueue struct {
	ch chan *model.Task
}

func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{
		ch: make(chan *model.Task, size),
	}
}

// Enqueue never blocks; a full buffer yields ErrQueueFull.
func (q *MemoryQueue) Enqueue(ctx context.Context, task *model.Task) error {
	select {
	case q.ch <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*model.Task, error) {
	select {
	case task := <-q.ch:
		return task, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports the number of buffered tasks.
func (q *MemoryQueue) Len() int { return len(q.ch) }

// RedisQueue implementation using Redis List
type RedisQueue struct {
	client *redis.Client
	key    string
	logger zerolog.Logger

	// pollTimeout bounds each BRPOP so cancellation is noticed promptly.
	pollTimeout time.Duration
	retryDelay  time.Duration
}

func NewRedisQueue(client *redis.Client, key string, logger zerolog.Logger) *RedisQueue {
	return &RedisQueue{
		client:      client,
		key:         key,
		logger:      logger.With().Str("component", "redis_queue").Str("key", key).Logger(),
		pollTimeout: time.Second,
		retryDelay:  time.Second,
	}
}

// NewRedisClient dials Redis and pings it. A failed ping is logged but not
// fatal so the service can start before Redis does.
func NewRedisClient(addr, password string, db int, logger zerolog.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", addr).Msg("failed to connect to redis")
	}
	return rdb
}

func (q *RedisQueue) Enqueue(ctx context.Context, task *model.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return errors.Wrap(err, "encode task")
	}
	// LPUSH to the head, BRPOP from the tail
	return errors.Wrap(q.client.LPush(ctx, q.key, data).Err(), "redis lpush")
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*model.Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			q.logger.Error().Err(err).Dur("retry_in", q.retryDelay).Msg("dequeue failed")
			select {
			case <-time.After(q.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		// result is [key, value]
		if len(result) < 2 {
			continue
		}

		var task model.Task
		if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
			q.logger.Error().Err(err).Str("raw", result[1]).Msg("skipping undecodable task")
			continue
		}
		return &task, nil
	}
}

// Len reports the length of the Redis list.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	return n, errors.Wrap(err, "redis llen")
}
