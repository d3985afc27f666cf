package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/abdel7517/ragdocs/internal/config"
	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/utils"
)

// errEmptyList signals that a pop found nothing before its timeout.
var errEmptyList = errors.New("list empty")

// listOps is the narrow slice of redis the consumer needs. The redis client
// satisfies it through a small adapter; tests inject an in-memory one.
type listOps interface {
	BLMove(ctx context.Context, source, destination, srcPos, destPos string, timeout time.Duration) (string, error)
	LMove(ctx context.Context, source, destination, srcPos, destPos string) (string, error)
	LRem(ctx context.Context, key string, count int64, value string) error
	Close() error
}

type redisListOps struct {
	rdb *goredis.Client
}

func (r *redisListOps) BLMove(ctx context.Context, source, destination, srcPos, destPos string, timeout time.Duration) (string, error) {
	raw, err := r.rdb.BLMove(ctx, source, destination, srcPos, destPos, timeout).Result()
	if errors.Is(err, goredis.Nil) {
		return "", errEmptyList
	}
	return raw, err
}

func (r *redisListOps) LMove(ctx context.Context, source, destination, srcPos, destPos string) (string, error) {
	raw, err := r.rdb.LMove(ctx, source, destination, srcPos, destPos).Result()
	if errors.Is(err, goredis.Nil) {
		return "", errEmptyList
	}
	return raw, err
}

func (r *redisListOps) LRem(ctx context.Context, key string, count int64, value string) error {
	return r.rdb.LRem(ctx, key, count, value).Err()
}

func (r *redisListOps) Close() error { return r.rdb.Close() }

// Consumer pulls jobs off the redis list and runs them on a bounded worker
// pool. Delivery is at-least-once: an entry is moved to a per-consumer
// processing list before the handler runs and removed only after it returns,
// and a startup reclaim pushes anything stranded there (a previous crash)
// back onto the main queue.
type Consumer struct {
	log           *logger.Logger
	ops           listOps
	registry      *Registry
	pool          *ants.Pool
	queueKey      string
	processingKey string
	jobTimeout    time.Duration
}

func NewConsumer(log *logger.Logger, registry *Registry, cfg config.Worker) (*Consumer, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	rdb, err := newRedisClient(log)
	if err != nil {
		return nil, err
	}

	queueKey := utils.GetEnv("JOB_QUEUE_KEY", defaultQueueKey, log)
	consumerID := utils.GetEnv("WORKER_CONSUMER_ID", "default", log)

	c, err := newConsumerWithOps(log, registry, cfg, &redisListOps{rdb: rdb}, queueKey, consumerID)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return c, nil
}

// newConsumerWithOps is the test seam; it takes the list backend directly.
func newConsumerWithOps(log *logger.Logger, registry *Registry, cfg config.Worker, ops listOps, queueKey, consumerID string) (*Consumer, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry required")
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, fmt.Errorf("worker pool: %w", err)
	}

	return &Consumer{
		log:           log.With("component", "JobConsumer", "consumer_id", consumerID),
		ops:           ops,
		registry:      registry,
		pool:          pool,
		queueKey:      queueKey,
		processingKey: fmt.Sprintf("%s:processing:%s", queueKey, consumerID),
		jobTimeout:    cfg.JobTimeout,
	}, nil
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	c.log.Info("Starting job consumer",
		"queue_key", c.queueKey,
		"concurrency", c.pool.Cap(),
		"job_timeout", c.jobTimeout,
	)

	if err := c.reclaim(ctx); err != nil {
		c.log.Warn("Reclaim of in-flight jobs failed", "error", err)
	}

	for {
		if ctx.Err() != nil {
			c.log.Info("Job consumer stopped")
			return
		}

		raw, err := c.ops.BLMove(ctx, c.queueKey, c.processingKey, "LEFT", "RIGHT", time.Second)
		if errors.Is(err, errEmptyList) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Job consumer stopped")
				return
			}
			c.log.Warn("Queue pull failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		entry := raw
		// Submit blocks once every pool worker is busy, which caps the
		// number of in-flight processing-list entries.
		if err := c.pool.Submit(func() {
			c.execute(ctx, entry)
			if err := c.ops.LRem(context.Background(), c.processingKey, 1, entry); err != nil {
				c.log.Warn("Failed to ack job", "error", err)
			}
		}); err != nil {
			c.log.Error("Failed to submit job to pool", "error", err)
			// Leave the entry on the processing list; the next reclaim
			// will requeue it.
		}
	}
}

// reclaim drains the processing list back onto the main queue. Anything
// found there was in flight when a previous run died, so it is redelivered.
func (c *Consumer) reclaim(ctx context.Context) error {
	for {
		raw, err := c.ops.LMove(ctx, c.processingKey, c.queueKey, "LEFT", "LEFT")
		if errors.Is(err, errEmptyList) {
			return nil
		}
		if err != nil {
			return err
		}
		c.log.Info("Requeued in-flight job from previous run", "bytes", len(raw))
	}
}

func (c *Consumer) execute(ctx context.Context, raw string) {
	env, err := decodeJob([]byte(raw))
	if err != nil {
		c.log.Error("Dropping undecodable job entry", "error", err)
		return
	}

	jobLog := c.log.With("job_id", env.JobID, "job_name", env.JobName)

	h, ok := c.registry.Get(env.JobName)
	if !ok {
		jobLog.Error("No handler registered for job")
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, c.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			jobLog.Error("Job handler panic", "panic", r)
		}
	}()

	start := time.Now()
	if err := h(jobCtx, env.Payload); err != nil {
		jobLog.Error("Job failed", "error", err, "duration", time.Since(start))
		return
	}
	jobLog.Info("Job completed", "duration", time.Since(start))
}

func (c *Consumer) Close() error {
	c.pool.Release()
	return c.ops.Close()
}
