package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"storepulse/config"
)

const (
	redisPollTimeout = 2 * time.Second
	redisRetryDelay  = time.Second
)

// RedisQueue dispatches report jobs through a Redis list so that any
// process sharing the database can compute them.
type RedisQueue struct {
	client  *redis.Client
	key     string
	workers int
	handler Handler
	logger  *zap.Logger
	poll    time.Duration
	wg      sync.WaitGroup
}

// NewRedisQueue creates a queue on the list named by cfg.RedisKey.
func NewRedisQueue(client *redis.Client, cfg config.QueueConfig, handler Handler, logger *zap.Logger) *RedisQueue {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &RedisQueue{
		client:  client,
		key:     cfg.RedisKey,
		workers: workers,
		handler: handler,
		logger:  logger,
		poll:    redisPollTimeout,
	}
}

// NewRedisClient connects to the server named in cfg and pings it.
func NewRedisClient(ctx context.Context, cfg config.QueueConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}

// Submit pushes the report id onto the list.
func (q *RedisQueue) Submit(ctx context.Context, reportID string) error {
	if err := q.client.LPush(ctx, q.key, reportID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue report %s: %w", reportID, err)
	}
	return nil
}

// Start launches the consumers.
func (q *RedisQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.consume(ctx, i)
	}
}

// Wait blocks until every consumer has exited.
func (q *RedisQueue) Wait() { q.wg.Wait() }

func (q *RedisQueue) consume(ctx context.Context, id int) {
	defer q.wg.Done()
	log := q.logger.With(zap.Int("consumer", id), zap.String("key", q.key))
	for ctx.Err() == nil {
		res, err := q.client.BRPop(ctx, q.poll, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("redis pop failed", zap.Error(err))
			select {
			case <-time.After(redisRetryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		// BRPOP replies with the key followed by the value.
		reportID := res[1]
		if err := q.handler(context.WithoutCancel(ctx), reportID); err != nil {
			log.Warn("report job returned error", zap.String("report_id", reportID), zap.Error(err))
		}
	}
}
