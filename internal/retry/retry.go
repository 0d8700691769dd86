// Package retry provides a bounded, fixed-delay retry loop for HTTP API calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultMaxRetries is the number of retries after the first failed attempt.
	DefaultMaxRetries = 10

	// DefaultDelay is the pause between attempts.
	DefaultDelay = 2 * time.Second
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real-time SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoSleep returns immediately. Useful for tests.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// NotifyFunc is called before each retry with the 1-based retry number.
type NotifyFunc func(retry, maxRetries int, err error)

// Config holds configuration for a retry Policy.
type Config struct {
	// MaxRetries is the maximum number of retries after the first attempt.
	// Default: 10
	MaxRetries int

	// Delay is the fixed pause between attempts. There is no growth and no jitter.
	// Default: 2 seconds
	Delay time.Duration

	// Sleep performs the pause. Default: Sleep
	Sleep SleepFunc

	// Stats is an optional tracker for retry events.
	Stats *Stats
}

// Policy runs operations with bounded retries.
type Policy struct {
	maxRetries int
	delay      time.Duration
	sleep      SleepFunc
	stats      *Stats
}

// New creates a Policy, applying defaults for unset fields.
func New(cfg Config) *Policy {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	delay := cfg.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	return &Policy{
		maxRetries: maxRetries,
		delay:      delay,
		sleep:      sleep,
		stats:      cfg.Stats,
	}
}

// MaxRetries returns the retry budget.
func (p *Policy) MaxRetries() int {
	return p.maxRetries
}

// Delay returns the pause between attempts.
func (p *Policy) Delay() time.Duration {
	return p.delay
}

// Do runs op until it succeeds or the retry budget is spent.
// The retry counter starts at zero on every call, so a success followed by a
// failure restarts counting from 1. Context errors end the loop immediately.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error, notify NotifyFunc) error {
	retries := 0
	for {
		err := op(ctx)
		if err == nil {
			if p.stats != nil {
				p.stats.RecordSuccess()
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if retries >= p.maxRetries {
			if p.stats != nil {
				p.stats.RecordExhausted()
			}
			return &ExhaustedError{Retries: retries, MaxRetries: p.maxRetries, Err: err}
		}

		retries++
		if p.stats != nil {
			p.stats.RecordRetry()
		}
		if notify != nil {
			notify(retries, p.maxRetries, err)
		}

		if err := p.sleep(ctx, p.delay); err != nil {
			return err
		}
	}
}

// ExhaustedError is returned when every retry failed.
type ExhaustedError struct {
	Retries    int
	MaxRetries int
	Err        error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d retries (max %d): %v", e.Retries, e.MaxRetries, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err came from a spent retry budget.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// Stats tracks retry statistics for a client.
type Stats struct {
	mu          sync.RWMutex
	retries     int64
	exhausted   int64
	successes   int64
	lastRetryAt time.Time
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{}
}

// RecordRetry records a retry.
func (s *Stats) RecordRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries++
	s.lastRetryAt = time.Now()
}

// RecordExhausted records a spent retry budget.
func (s *Stats) RecordExhausted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exhausted++
}

// RecordSuccess records a successful operation.
func (s *Stats) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes++
}

// RetryCount returns the total number of retries.
func (s *Stats) RetryCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retries
}

// ExhaustedCount returns how many operations gave up.
func (s *Stats) ExhaustedCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exhausted
}

// SuccessCount returns how many operations succeeded.
func (s *Stats) SuccessCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.successes
}

// LastRetryTime returns the time of the last retry.
func (s *Stats) LastRetryTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRetryAt
}
