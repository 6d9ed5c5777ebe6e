package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Leganyst/cleaning-calendar/internal/config"
)

// SubmitKey — общий ключ блокировки заявок. Занятость снимается по
// диапазону дат, поэтому блокировка одна на весь календарь.
const SubmitKey = "calendar:lock:submit"

var ErrNotAcquired = errors.New("lock not acquired")

// Unlock снимает блокировку, взятую Lock.
type Unlock func(ctx context.Context) error

// Locker сужает окно гонки между снимком занятости и записью.
// Окончательное решение всё равно за уникальным индексом в базе.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// NopLocker — блокировка выключена.
type NopLocker struct{}

func (NopLocker) Lock(context.Context, string) (Unlock, error) {
	return func(context.Context) error { return nil }, nil
}

// снимаем только свою блокировку
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker — SET NX PX с токеном владельца.
type RedisLocker struct {
	rdb    *goredis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedisLocker подключается к Redis и проверяет соединение.
func NewRedisLocker(cfg *config.RedisConfig, logger *zap.Logger) (*RedisLocker, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	logger.Info("redis connected", zap.String("addr", cfg.Addr))
	return NewRedisLockerWithClient(rdb, cfg.LockTTL, cfg.LockWait, logger), nil
}

func NewRedisLockerWithClient(rdb *goredis.Client, ttl, wait time.Duration, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		rdb:    rdb,
		ttl:    ttl,
		wait:   wait,
		retry:  50 * time.Millisecond,
		logger: logger,
	}
}

// Lock пытается взять блокировку, пока не выйдет время ожидания.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s held longer than %s", ErrNotAcquired, key, l.wait)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
			l.logger.Warn("redis unlock failed", zap.String("key", key), zap.Error(err))
			return err
		}
		return nil
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.rdb.Close()
}
