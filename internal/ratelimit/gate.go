package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate admits at most limit holders at a time. Waiters are admitted in FIFO
// order.
type Gate struct {
	sem      *semaphore.Weighted
	limit    int
	inFlight atomic.Int64
}

// NewGate returns a gate for limit concurrent holders.
func NewGate(limit int) (*Gate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d concurrent requests", ErrInvalidCapacity, limit)
	}
	return &Gate{sem: semaphore.NewWeighted(int64(limit)), limit: limit}, nil
}

// Acquire blocks until a slot is free or ctx ends. The returned release must
// be called once the holder is done; extra calls are no-ops.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	g.inFlight.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.inFlight.Add(-1)
			g.sem.Release(1)
		})
	}, nil
}

// InFlight returns the number of current holders.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// Limit returns the configured maximum.
func (g *Gate) Limit() int {
	return g.limit
}
