package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	redisPrefix  = "stickyboard:"
	redisChannel = redisPrefix + "changes"
)

// RedisStore keeps keys under the "stickyboard:" prefix so several devices can
// share one instance. Writes are announced on a pub/sub channel.
type RedisStore struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, log: logger}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, redisPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, redisPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	s.announce(ctx, key)
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	s.announce(ctx, key)
	return nil
}

const updateRetries = 5

// Update is an optimistic WATCH/MULTI transaction, retried when another
// client touches the key in between.
func (s *RedisStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	full := redisPrefix + key
	txf := func(tx *redis.Tx) error {
		old, err := tx.Get(ctx, full).Result()
		ok := true
		if errors.Is(err, redis.Nil) {
			old, ok = "", false
		} else if err != nil {
			return err
		}
		next, changed, err := fn(old, ok)
		if err != nil || !changed {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, full, next, 0)
			return nil
		})
		return err
	}
	for i := 0; i < updateRetries; i++ {
		err := s.client.Watch(ctx, txf, full)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis update %s: %w", key, err)
		}
		s.announce(ctx, key)
		return nil
	}
	return fmt.Errorf("redis update %s: too much contention", key)
}

func (s *RedisStore) announce(ctx context.Context, key string) {
	if err := s.client.Publish(ctx, redisChannel, key).Err(); err != nil {
		s.log.Debug("redis publish failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *RedisStore) Changes(ctx context.Context) (<-chan struct{}, error) {
	sub := s.client.Subscribe(ctx, redisChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
