package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/j-veylop/mass-rtp-search/internal/logger"
)

var (
	// ErrInvalidCapacity is returned for non-positive limits or periods.
	ErrInvalidCapacity = errors.New("ratelimit: capacity must be positive")
	// ErrStopped is returned by Acquire once the filler has exited and no
	// permits are left.
	ErrStopped = errors.New("ratelimit: bucket stopped")
)

// Bucket is a token bucket backed by a buffered channel. It starts empty; a
// filler goroutine adds one permit per period and drops it when the buffer
// already holds capacity permits. Up to capacity calls can therefore go out
// at once after an idle stretch, while the sustained rate stays at one per
// period.
//
// The filler runs until the context passed to the constructor is canceled.
type Bucket struct {
	permits chan struct{}
	done    chan struct{}
	period  time.Duration
	issued  atomic.Int64
	waiting atomic.Int64
	waitLog rate.Sometimes
}

// NewBucket returns a bucket allowing perMinute permits per minute.
func NewBucket(ctx context.Context, perMinute int) (*Bucket, error) {
	if perMinute <= 0 {
		return nil, fmt.Errorf("%w: %d requests per minute", ErrInvalidCapacity, perMinute)
	}
	return NewBucketWithPeriod(ctx, perMinute, time.Minute/time.Duration(perMinute))
}

// NewBucketWithPeriod returns a bucket holding at most capacity permits and
// refilled with one permit per period.
func NewBucketWithPeriod(ctx context.Context, capacity int, period time.Duration) (*Bucket, error) {
	if capacity <= 0 || period <= 0 {
		return nil, fmt.Errorf("%w: capacity %d, period %v", ErrInvalidCapacity, capacity, period)
	}

	b := &Bucket{
		permits: make(chan struct{}, capacity),
		done:    make(chan struct{}),
		period:  period,
		waitLog: rate.Sometimes{Interval: 5 * time.Second},
	}
	go b.fill(ctx)
	return b, nil
}

func (b *Bucket) fill(ctx context.Context) {
	defer close(b.done)

	ticker := time.NewTicker(b.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case b.permits <- struct{}{}:
			default:
				// Full: the bucket never holds more than capacity.
			}
		}
	}
}

// Acquire blocks until a permit is available. Waiters are served in arrival
// order. It fails when ctx ends, or with ErrStopped when the filler has
// exited and the buffer is empty.
func (b *Bucket) Acquire(ctx context.Context) error {
	if b.TryAcquire() {
		return nil
	}

	n := b.waiting.Add(1)
	defer b.waiting.Add(-1)
	b.waitLog.Do(func() {
		logger.Debug("waiting for rate permit", "waiting", n, "period", b.period)
	})

	select {
	case <-b.permits:
		b.issued.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		if b.TryAcquire() {
			return nil
		}
		return ErrStopped
	}
}

// TryAcquire takes a permit if one is buffered, without blocking.
func (b *Bucket) TryAcquire() bool {
	select {
	case <-b.permits:
		b.issued.Add(1)
		return true
	default:
		return false
	}
}

// Issued returns the number of permits handed out so far.
func (b *Bucket) Issued() int64 {
	return b.issued.Load()
}

// Available returns the number of buffered permits.
func (b *Bucket) Available() int {
	return len(b.permits)
}

// Capacity returns the maximum burst size.
func (b *Bucket) Capacity() int {
	return cap(b.permits)
}

// Period returns the refill interval.
func (b *Bucket) Period() time.Duration {
	return b.period
}

// Done is closed when the filler goroutine has exited.
func (b *Bucket) Done() <-chan struct{} {
	return b.done
}
