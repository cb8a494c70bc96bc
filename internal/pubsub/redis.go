package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis — шина поверх Redis PUBLISH/SUBSCRIBE для нескольких экземпляров сервиса.
// Все топики идут одним каналом Redis; локальная раздача подписчикам — через Memory.
type Redis struct {
	rdb     *redis.Client
	channel string
	local   *Memory
	log     *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewRedis подписывается на канал и начинает пересылать уведомления локальным подписчикам.
func NewRedis(ctx context.Context, rdb *redis.Client, channel string, log *slog.Logger) (*Redis, error) {
	const op = "pubsub/redis/NewRedis"

	if log == nil {
		log = slog.Default()
	}

	ps := rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	r := &Redis{
		rdb:     rdb,
		channel: channel,
		local:   NewMemory(),
		log:     log.With(slog.String("component", "pubsub_redis")),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go r.run(runCtx, ps)

	return r, nil
}

func (r *Redis) run(ctx context.Context, ps *redis.PubSub) {
	defer close(r.done)
	defer ps.Close()

	ch := ps.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			if err := r.local.Publish(ctx, msg.Payload); err != nil {
				r.log.Debug("redis_fanout_skipped", slog.String("topic", msg.Payload), slog.String("err", err.Error()))
			}
		}
	}
}

// Publish реализует Bus.
func (r *Redis) Publish(ctx context.Context, topic string) error {
	const op = "pubsub/redis/Publish"

	if !validTopic(topic) {
		return ErrInvalidTopic
	}

	if err := r.rdb.Publish(ctx, r.channel, topic).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Subscribe реализует Bus.
func (r *Redis) Subscribe(ctx context.Context, topics ...string) (<-chan string, error) {
	return r.local.Subscribe(ctx, topics...)
}

// Close останавливает пересылку и закрывает локальных подписчиков.
// Клиент Redis закрывает владелец.
func (r *Redis) Close() error {
	r.once.Do(func() {
		r.cancel()
		<-r.done
	})

	return r.local.Close()
}
