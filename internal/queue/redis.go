package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/utils"
)

const defaultQueueKey = "ragdocs:jobs"

func newRedisClient(log *logger.Logger) (*goredis.Client, error) {
	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "localhost:6379", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

type redisQueue struct {
	log      *logger.Logger
	rdb      *goredis.Client
	queueKey string
}

func NewRedisQueue(log *logger.Logger) (JobQueue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	rdb, err := newRedisClient(log)
	if err != nil {
		return nil, err
	}
	return &redisQueue{
		log:      log.With("service", "RedisJobQueue"),
		rdb:      rdb,
		queueKey: utils.GetEnv("JOB_QUEUE_KEY", defaultQueueKey, log),
	}, nil
}

func (q *redisQueue) Enqueue(ctx context.Context, jobName string, payload any) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("redis job queue not initialized")
	}
	entry, err := encodeJob(jobName, payload)
	if err != nil {
		return err
	}
	if err := q.rdb.RPush(ctx, q.queueKey, entry).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobName, err)
	}
	q.log.Info("Job enqueued", "job_name", jobName)
	return nil
}

func (q *redisQueue) Close() error {
	if q == nil || q.rdb == nil {
		return nil
	}
	return q.rdb.Close()
}
