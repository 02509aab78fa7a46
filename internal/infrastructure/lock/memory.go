package lock

import (
	"context"
	"sync"
	"time"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/google/uuid"
)

// MemoryLocker is an in-process keyed mutex. Each key owns a one-slot
// channel; entries are dropped once nobody holds or waits for them.
type MemoryLocker struct {
	timeout time.Duration

	mu      sync.Mutex
	entries map[uuid.UUID]*memoryEntry
}

type memoryEntry struct {
	slot chan struct{}
	refs int
}

// NewMemoryLocker creates a MemoryLocker waiting at most timeout per Acquire
func NewMemoryLocker(timeout time.Duration) *MemoryLocker {
	return &MemoryLocker{
		timeout: timeout,
		entries: make(map[uuid.UUID]*memoryEntry),
	}
}

// Acquire blocks until the operation's lock is free, the timeout passes or ctx ends
func (l *MemoryLocker) Acquire(ctx context.Context, operationID uuid.UUID) (func(), error) {
	entry := l.ref(operationID)

	var timeout <-chan time.Time
	if l.timeout > 0 {
		timer := time.NewTimer(l.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case entry.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.slot
				l.unref(operationID)
			})
		}, nil
	case <-timeout:
		l.unref(operationID)
		return nil, landedcost.NewConcurrencyError(operationID, "lock wait timed out after "+l.timeout.String(), nil)
	case <-ctx.Done():
		l.unref(operationID)
		return nil, landedcost.NewConcurrencyError(operationID, "lock wait cancelled", ctx.Err())
	}
}

// Len returns the number of keys currently held or awaited
func (l *MemoryLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *MemoryLocker) ref(id uuid.UUID) *memoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		e = &memoryEntry{slot: make(chan struct{}, 1)}
		l.entries[id] = e
	}
	e.refs++
	return e
}

func (l *MemoryLocker) unref(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[id]
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}
