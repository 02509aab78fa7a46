// Package lock serializes mutations of a trade operation across goroutines
// (memory backend) or service instances (redis backend).
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/landedcost/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker acquires the per-trade-operation lock with a bounded wait.
// A lock that cannot be obtained in time yields a *landedcost.ConcurrencyError.
// The returned release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, operationID uuid.UUID) (func(), error)
}

// Observer receives lock wait measurements
type Observer interface {
	ObserveLockWait(ctx context.Context, backend string, wait time.Duration, acquired bool)
}

// New builds the locker selected by cfg.Backend
func New(cfg config.LockConfig, rdb *redis.Client, logger *zap.Logger) (Locker, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryLocker(cfg.AcquireTimeout), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis lock backend requires a redis client")
		}
		return NewRedisLocker(rdb, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported lock backend %q", cfg.Backend)
	}
}

type instrumented struct {
	next     Locker
	backend  string
	observer Observer
}

// Instrumented reports the wait of every Acquire call to the observer
func Instrumented(next Locker, backend string, observer Observer) Locker {
	if observer == nil {
		return next
	}
	return &instrumented{next: next, backend: backend, observer: observer}
}

func (i *instrumented) Acquire(ctx context.Context, operationID uuid.UUID) (func(), error) {
	start := time.Now()
	release, err := i.next.Acquire(ctx, operationID)
	i.observer.ObserveLockWait(ctx, i.backend, time.Since(start), err == nil)
	return release, err
}
