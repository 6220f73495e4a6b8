package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// heldLock is the part of *redislock.Lock kept alive by RedisRunLock
type heldLock interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
	Release(ctx context.Context) error
}

// RedisRunLock implements RunLock with redislock, shared by every process on
// the same Redis. A held lock is refreshed every ttl/3 until it is released,
// so a run may outlive ttl; ttl only bounds how long a crashed run blocks the next one.
type RedisRunLock struct {
	client    *redis.Client
	obtain    func(ctx context.Context, key string, ttl time.Duration) (heldLock, error)
	keyPrefix string
	logger    *zap.Logger
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisRunLockOption configures a RedisRunLock
type RedisRunLockOption func(*RedisRunLock)

// WithRedisLockLogger sets the logger used for refresh failures
func WithRedisLockLogger(logger *zap.Logger) RedisRunLockOption {
	return func(l *RedisRunLock) { l.logger = logger }
}

// NewRedisRunLock connects to Redis and checks the connection
func NewRedisRunLock(cfg RedisConfig, opts ...RedisRunLockOption) (*RedisRunLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRunLockWithClient(client, "", opts...), nil
}

// NewRedisRunLockWithClient creates a lock over an existing Redis client
func NewRedisRunLockWithClient(client *redis.Client, keyPrefix string, opts ...RedisRunLockOption) *RedisRunLock {
	if keyPrefix == "" {
		keyPrefix = "movmais:lock:"
	}
	locker := redislock.New(client)
	l := &RedisRunLock{
		client: client,
		obtain: func(ctx context.Context, key string, ttl time.Duration) (heldLock, error) {
			return locker.Obtain(ctx, key, ttl, nil)
		},
		keyPrefix: keyPrefix,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire obtains the lock without retrying; a held lock is ErrLockHeld
func (l *RedisRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	lock, err := l.obtain(ctx, l.keyPrefix+key, ttl)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockHeld
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain run lock %s: %w", key, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(lock, key, ttl, stop, done)

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-done
		})
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}

// keepAlive extends lock to ttl every ttl/3 until stop is closed or the lock is lost
func (l *RedisRunLock) keepAlive(lock heldLock, key string, ttl time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := ttl / 3
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		err := lock.Refresh(ctx, ttl, nil)
		cancel()
		switch {
		case err == nil:
		case errors.Is(err, redislock.ErrNotObtained):
			l.logger.Error("Run lock lost before release, another run may start",
				zap.String("lock_key", key), zap.Duration("ttl", ttl))
			return
		default:
			l.logger.Warn("Failed to refresh run lock", zap.String("lock_key", key), zap.Error(err))
		}
	}
}

// Close closes the Redis client
func (l *RedisRunLock) Close() error {
	return l.client.Close()
}
