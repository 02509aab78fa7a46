package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Releaser is a held redis lock
type Releaser interface {
	Release(ctx context.Context) error
}

// Obtainer obtains redis locks. *redislock.Client satisfies it through NewRedisLocker.
type Obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (Releaser, error)
}

type clientObtainer struct {
	client *redislock.Client
}

func (o clientObtainer) Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (Releaser, error) {
	l, err := o.client.Obtain(ctx, key, ttl, opt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// RedisLocker holds the per-operation lock in redis so that several service
// instances serialize on the same trade operation.
type RedisLocker struct {
	obtainer      Obtainer
	timeout       time.Duration
	ttl           time.Duration
	retryInterval time.Duration
	keyPrefix     string
	logger        *zap.Logger
}

// NewRedisLocker creates a RedisLocker on top of a go-redis client
func NewRedisLocker(rdb *redis.Client, cfg config.LockConfig, logger *zap.Logger) *RedisLocker {
	return NewRedisLockerWithObtainer(clientObtainer{client: redislock.New(rdb)}, cfg, logger)
}

// NewRedisLockerWithObtainer creates a RedisLocker with a custom Obtainer
func NewRedisLockerWithObtainer(obtainer Obtainer, cfg config.LockConfig, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		obtainer:      obtainer,
		timeout:       cfg.AcquireTimeout,
		ttl:           cfg.TTL,
		retryInterval: cfg.RetryInterval,
		keyPrefix:     cfg.KeyPrefix,
		logger:        logger.Named("redis_locker"),
	}
}

// Key returns the redis key of an operation's lock
func (l *RedisLocker) Key(operationID uuid.UUID) string {
	return l.keyPrefix + operationID.String()
}

// Acquire polls for the lock every retry interval until the acquire timeout
func (l *RedisLocker) Acquire(ctx context.Context, operationID uuid.UUID) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	key := l.Key(operationID)
	held, err := l.obtainer.Obtain(waitCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.retryInterval),
	})
	if err != nil {
		switch {
		case errors.Is(err, redislock.ErrNotObtained), errors.Is(err, context.DeadlineExceeded):
			if ctx.Err() != nil {
				return nil, landedcost.NewConcurrencyError(operationID, "lock wait cancelled", ctx.Err())
			}
			return nil, landedcost.NewConcurrencyError(operationID, "lock wait timed out after "+l.timeout.String(), redislock.ErrNotObtained)
		case errors.Is(err, context.Canceled):
			return nil, landedcost.NewConcurrencyError(operationID, "lock wait cancelled", err)
		default:
			return nil, err
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be done when the deferred release runs
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := held.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.Warn("Failed to release trade operation lock",
					zap.String("key", key),
					zap.Error(err),
				)
			}
		})
	}, nil
}
