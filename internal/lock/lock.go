package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/iurnickita/vendussync/internal/lock/config"
)

var ErrLocked = errors.New("lock is held by another process")

// Release снимает блокировку
type Release func(ctx context.Context) error

type Locker interface {
	Obtain(ctx context.Context, key string) (Release, error)
}

// NewLocker - блокировка в Redis, если задан адрес, иначе без блокировки
func NewLocker(cfg config.Config) Locker {
	if cfg.RedisAddr == "" {
		return Noop{}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisLocker(rdb, cfg.TTL)
}

type redisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = config.DefaultTTL
	}
	return &redisLocker{client: redislock.New(rdb), ttl: ttl}
}

// Obtain не ждет: занятая блокировка - сразу ErrLocked
func (l *redisLocker) Obtain(ctx context.Context, key string) (Release, error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, ErrLocked
	} else if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if err == redislock.ErrLockNotHeld {
			// истек TTL
			return nil
		}
		return err
	}, nil
}

type Noop struct{}

func (Noop) Obtain(context.Context, string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}
