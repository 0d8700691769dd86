package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// recordingSleep records requested delays without waiting.
type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

// TestDoSucceedsFirstTry verifies no retry happens on immediate success
func TestDoSucceedsFirstTry(t *testing.T) {
	rs := &recordingSleep{}
	p := New(Config{Sleep: rs.sleep})

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if len(rs.delays) != 0 {
		t.Errorf("expected no sleeps, got %d", len(rs.delays))
	}
}

// TestDoRetriesUntilSuccess verifies retries stop at the first success
func TestDoRetriesUntilSuccess(t *testing.T) {
	rs := &recordingSleep{}
	p := New(Config{Delay: 2 * time.Second, Sleep: rs.sleep})

	calls := 0
	var notified []int
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls <= 3 {
			return errors.New("boom")
		}
		return nil
	}, func(retry, maxRetries int, err error) {
		notified = append(notified, retry)
		if maxRetries != DefaultMaxRetries {
			t.Errorf("expected max %d, got %d", DefaultMaxRetries, maxRetries)
		}
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
	if len(notified) != 3 || notified[0] != 1 || notified[2] != 3 {
		t.Errorf("expected notifications [1 2 3], got %v", notified)
	}
	for _, d := range rs.delays {
		if d != 2*time.Second {
			t.Errorf("expected fixed 2s delay, got %v", d)
		}
	}
}

// TestDoExhaustsAfterMaxRetries verifies exactly MaxRetries retries happen on sustained failure
func TestDoExhaustsAfterMaxRetries(t *testing.T) {
	stats := NewStats()
	p := New(Config{Sleep: NoSleep, Stats: stats})

	cause := errors.New("connection refused")
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return cause
	}, nil)

	if !IsExhausted(err) {
		t.Fatalf("expected exhausted error, got: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected error to wrap the last cause")
	}
	// one initial attempt plus ten retries
	if calls != DefaultMaxRetries+1 {
		t.Errorf("expected %d calls, got %d", DefaultMaxRetries+1, calls)
	}

	var ee *ExhaustedError
	if errors.As(err, &ee) && ee.Retries != DefaultMaxRetries {
		t.Errorf("expected %d retries recorded, got %d", DefaultMaxRetries, ee.Retries)
	}
	if stats.RetryCount() != DefaultMaxRetries {
		t.Errorf("expected stats retry count %d, got %d", DefaultMaxRetries, stats.RetryCount())
	}
	if stats.ExhaustedCount() != 1 {
		t.Errorf("expected 1 exhausted, got %d", stats.ExhaustedCount())
	}
}

// TestDoCounterRestartsPerCall verifies that each call starts a fresh retry sequence
func TestDoCounterRestartsPerCall(t *testing.T) {
	p := New(Config{Sleep: NoSleep})
	ctx := context.Background()

	failures := 4
	_ = p.Do(ctx, func(context.Context) error {
		if failures > 0 {
			failures--
			return errors.New("down")
		}
		return nil
	}, nil)

	var first int
	_ = p.Do(ctx, func(context.Context) error {
		return errors.New("down again")
	}, func(retry, _ int, _ error) {
		if first == 0 {
			first = retry
		}
	})
	if first != 1 {
		t.Errorf("expected counting to restart at 1, got %d", first)
	}
}

// TestDoContextCancelled verifies cancellation stops the loop
func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(Config{Sleep: Sleep, Delay: time.Hour})

	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

// TestNewDefaults verifies defaults are applied
func TestNewDefaults(t *testing.T) {
	p := New(Config{})
	if p.MaxRetries() != 10 {
		t.Errorf("expected default max retries 10, got %d", p.MaxRetries())
	}
	if p.Delay() != 2*time.Second {
		t.Errorf("expected default delay 2s, got %v", p.Delay())
	}
}

// TestSleepHonoursContext verifies Sleep returns early on cancellation
func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("expected Sleep to return immediately")
	}
}

// TestStatsRecordsSuccessAfterRetries verifies success and last retry time are tracked
func TestStatsRecordsSuccessAfterRetries(t *testing.T) {
	stats := NewStats()
	if !stats.LastRetryTime().IsZero() {
		t.Fatalf("expected zero last retry time before any retry")
	}
	p := New(Config{Sleep: NoSleep, Stats: stats})

	before := time.Now()
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("unavailable")
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.SuccessCount() != 1 {
		t.Errorf("expected 1 success, got %d", stats.SuccessCount())
	}
	if stats.RetryCount() != 2 {
		t.Errorf("expected 2 retries, got %d", stats.RetryCount())
	}
	if stats.ExhaustedCount() != 0 {
		t.Errorf("expected no exhaustion, got %d", stats.ExhaustedCount())
	}
	if last := stats.LastRetryTime(); last.Before(before) {
		t.Errorf("expected last retry time after %v, got %v", before, last)
	}
}
