package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

var errSMTP = errors.New("smtp: connection refused")

func newTestBreaker(maxFailures int, timeout time.Duration) *CircuitBreaker {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	return New(Config{
		Name:        "mail",
		MaxFailures: maxFailures,
		Timeout:     timeout,
		MaxRequests: 1,
	}, logger)
}

func fail(context.Context) error    { return errSMTP }
func succeed(context.Context) error { return nil }

func TestOpensAfterMaxFailures(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := cb.Execute(context.Background(), fail); !errors.Is(err, errSMTP) {
			t.Fatalf("attempt %d: expected transport error, got %v", i, err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("expected open state, got %s", cb.State())
	}

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Errorf("expected ErrCircuitBreakerOpen, got %v", err)
	}
	if called {
		t.Error("function must not run while the breaker is open")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(2, time.Minute)

	cb.Execute(context.Background(), fail)
	cb.Execute(context.Background(), succeed)
	cb.Execute(context.Background(), fail)

	if cb.State() != StateClosed {
		t.Errorf("expected closed state, got %s", cb.State())
	}
}

func TestHalfOpenProbe(t *testing.T) {
	cb := newTestBreaker(1, time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	cb.Execute(context.Background(), fail)
	if cb.State() != StateOpen {
		t.Fatalf("expected open state, got %s", cb.State())
	}

	now = now.Add(2 * time.Second)
	if err := cb.Execute(context.Background(), succeed); err != nil {
		t.Fatalf("probe should run after timeout, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("successful probe should close the breaker, got %s", cb.State())
	}
}

func TestFailedProbeReopens(t *testing.T) {
	cb := newTestBreaker(1, time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	cb.Execute(context.Background(), fail)
	now = now.Add(2 * time.Second)
	cb.Execute(context.Background(), fail)

	if cb.State() != StateOpen {
		t.Errorf("failed probe should reopen the breaker, got %s", cb.State())
	}
}

func TestCancelledContextIsNotCounted(t *testing.T) {
	cb := newTestBreaker(1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := cb.Execute(ctx, fail); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed state, got %s", cb.State())
	}
	if got := cb.Metrics()["total_requests"].(int64); got != 0 {
		t.Errorf("expected no counted requests, got %d", got)
	}
}

func TestInvalidConfigUsesDefaults(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cb := New(Config{MaxFailures: -1, Timeout: 0, MaxRequests: 1000}, logger)

	if cb.name != "unnamed" {
		t.Errorf("expected default name, got %q", cb.name)
	}
	if cb.maxFailures != 5 {
		t.Errorf("expected MaxFailures 5, got %d", cb.maxFailures)
	}
	if cb.timeout != 30*time.Second {
		t.Errorf("expected Timeout 30s, got %s", cb.timeout)
	}
	if cb.maxRequests != 100 {
		t.Errorf("expected MaxRequests capped at 100, got %d", cb.maxRequests)
	}
}

func TestStateChangeCallback(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	var mu sync.Mutex
	var transitions []string
	done := make(chan struct{}, 1)

	cb := New(Config{
		Name:        "mail",
		MaxFailures: 1,
		Timeout:     time.Minute,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			transitions = append(transitions, from.String()+"->"+to.String())
			mu.Unlock()
			done <- struct{}{}
		},
	}, logger)

	cb.Execute(context.Background(), fail)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("state change callback was not called")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("unexpected transitions: %v", transitions)
	}
}

func TestConcurrentMetricsStayConsistent(t *testing.T) {
	cb := newTestBreaker(1000, time.Minute)

	var calls int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				cb.Execute(context.Background(), func(context.Context) error {
					atomic.AddInt64(&calls, 1)
					if (i+j)%3 == 0 {
						return errSMTP
					}
					return nil
				})
			}
		}(i)
	}
	wg.Wait()

	metrics := cb.Metrics()
	total := metrics["total_requests"].(int64)
	failures := metrics["total_failures"].(int64)
	successes := metrics["total_successes"].(int64)

	if total != failures+successes {
		t.Errorf("inconsistent metrics: total=%d failures=%d successes=%d", total, failures, successes)
	}
	if total != atomic.LoadInt64(&calls) {
		t.Errorf("expected %d counted requests, got %d", calls, total)
	}
}
