package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abdel7517/ragdocs/internal/domain"
	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/utils"
)

type redisBroker struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisBroker(log *logger.Logger) (Broker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

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

	return &redisBroker{
		log: log.With("service", "RedisProgressBroker"),
		rdb: rdb,
	}, nil
}

func (b *redisBroker) Publish(ctx context.Context, channel string, event domain.ProgressEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis progress broker not initialized")
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel, raw).Err()
}

func (b *redisBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	if b == nil || b.rdb == nil {
		return nil, fmt.Errorf("redis progress broker not initialized")
	}

	sub := b.rdb.Subscribe(ctx, channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	return &redisSubscription{
		log: b.log.With("channel", channel),
		sub: sub,
		ch:  sub.Channel(),
	}, nil
}

func (b *redisBroker) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

type redisSubscription struct {
	log *logger.Logger
	sub *goredis.PubSub
	ch  <-chan *goredis.Message
}

func (s *redisSubscription) Next(ctx context.Context, wait time.Duration) (domain.ProgressEvent, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.ProgressEvent{}, ctx.Err()
		case <-timer.C:
			return domain.ProgressEvent{}, ErrTimeout
		case m, ok := <-s.ch:
			if !ok || m == nil {
				return domain.ProgressEvent{}, fmt.Errorf("subscription closed")
			}
			var event domain.ProgressEvent
			if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
				s.log.Warn("bad progress payload", "error", err)
				continue
			}
			return event, nil
		}
	}
}

func (s *redisSubscription) Close() error {
	return s.sub.Close()
}
