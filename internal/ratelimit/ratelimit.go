package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Interval yields pause durations drawn uniformly from [Min, Max].
type Interval struct {
	Min time.Duration
	Max time.Duration
}

func Fixed(d time.Duration) Interval {
	return Interval{Min: d, Max: d}
}

func (i Interval) IsZero() bool {
	return i.Min <= 0 && i.Max <= 0
}

// Next returns the next pause. A Max below Min is treated as Min.
func (i Interval) Next() time.Duration {
	if i.Max <= i.Min {
		return i.Min
	}

	delta := i.Max - i.Min
	jitter := time.Duration(rand.Int63n(int64(delta) + 1))
	return i.Min + jitter
}

// Limiter spaces consecutive actions by at least one Interval draw.
type Limiter struct {
	interval   Interval
	lastAction time.Time
	mu         sync.Mutex
}

func NewLimiter(interval Interval) *Limiter {
	return &Limiter{interval: interval}
}

func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lastAction.IsZero() && !l.interval.IsZero() {
		elapsed := time.Since(l.lastAction)
		delay := l.interval.Next()

		if elapsed < delay {
			timer := time.NewTimer(delay - elapsed)
			defer timer.Stop()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	l.lastAction = time.Now()
	return nil
}
