package core

// limiter.go bounds how many import executions run at once.
//
// Each execution holds one slot from Execute until its runner returns.
// When every slot is taken, Acquire waits up to maxWait and then fails with
// ErrTooManyImports so the caller can retry later. WaitForDrain lets
// shutdown block until running executions have released their slots.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyImports is returned when every execution slot is busy and the
// wait timed out.
var ErrTooManyImports = errors.New("too many imports in progress, please try again later")

// DefaultMaxConcurrentImports is the default limit for parallel executions.
const DefaultMaxConcurrentImports = 5

// DefaultMaxWaitTime is how long Acquire waits for a slot before rejecting.
const DefaultMaxWaitTime = 5 * time.Second

// ExecutionLimiter is a counting semaphore over import executions.
type ExecutionLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

// NewExecutionLimiter creates a limiter that allows at most maxConcurrent
// simultaneous executions. Non-positive arguments fall back to the defaults.
func NewExecutionLimiter(maxConcurrent int, maxWait time.Duration) *ExecutionLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ExecutionLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait.
// The caller must call Release exactly once after a nil return.
func (l *ExecutionLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyImports
	}
}

// Release frees a slot taken by Acquire.
func (l *ExecutionLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.slots
}

// ActiveCount returns the number of running executions.
func (l *ExecutionLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *ExecutionLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no execution holds a slot or ctx is done.
func (l *ExecutionLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a point-in-time view of the limiter for health output.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state.
func (l *ExecutionLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}
