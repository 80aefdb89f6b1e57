package pool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gantryhq/gantry/internal/launcher"
	"github.com/gantryhq/gantry/internal/pool"
)

func mustBounded(t *testing.T, d time.Duration) launcher.RequestTimeout {
	t.Helper()
	timeout, err := launcher.BoundedDuration(d)
	if err != nil {
		t.Fatalf("BoundedDuration failed: %v", err)
	}
	return timeout
}

func TestUnboundedTimeoutLongRequestCompletes(t *testing.T) {
	p, err := pool.New(pool.Config{
		Processes:         1,
		ThreadsPerProcess: 8,
		Timeout:           launcher.Unbounded(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close(time.Second)

	// Long relative to any deadline the pool could be holding
	completed := false
	err = p.Submit(context.Background(), func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		completed = true
		return nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !completed {
		t.Error("long request should run to completion under an unbounded timeout")
	}
}

func TestBoundedTimeoutTerminatesRequest(t *testing.T) {
	p, err := pool.New(pool.Config{
		Processes:         1,
		ThreadsPerProcess: 8,
		Timeout:           mustBounded(t, 50*time.Millisecond),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close(time.Second)

	started := time.Now()
	err = p.Submit(context.Background(), func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if !errors.Is(err, pool.ErrRequestTimeout) {
		t.Fatalf("expected ErrRequestTimeout, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Errorf("caller waited %s, should be released at the deadline", elapsed)
	}

	// The worker was recycled, not the pool: fast requests still serve
	err = p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	if err != nil {
		t.Errorf("pool should keep serving after a worker recycle, got %v", err)
	}
}

func TestWorkerCrashClosesPool(t *testing.T) {
	p, err := pool.New(pool.Config{
		Processes:         1,
		ThreadsPerProcess: 8,
		Timeout:           launcher.Unbounded(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = p.Submit(context.Background(), func(ctx context.Context) error {
		panic("handler blew up")
	})
	if !errors.Is(err, pool.ErrWorkerCrashed) {
		t.Fatalf("expected ErrWorkerCrashed, got %v", err)
	}

	// Sole worker crashed, no restart policy: no new work is accepted
	err = p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	if !errors.Is(err, pool.ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed after crash, got %v", err)
	}
}

func TestCrashUnderBoundedTimeoutClosesPool(t *testing.T) {
	p, err := pool.New(pool.Config{
		Processes:         1,
		ThreadsPerProcess: 8,
		Timeout:           mustBounded(t, time.Second),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = p.Submit(context.Background(), func(ctx context.Context) error {
		panic("handler blew up")
	})
	if !errors.Is(err, pool.ErrWorkerCrashed) {
		t.Fatalf("expected ErrWorkerCrashed, got %v", err)
	}

	err = p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	if !errors.Is(err, pool.ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed after crash, got %v", err)
	}
}

func TestBlockingRequestHoldsOnlyItsSlot(t *testing.T) {
	p, err := pool.New(pool.Config{
		Processes:         1,
		ThreadsPerProcess: 8,
		Timeout:           launcher.Unbounded(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close(time.Second)

	release := make(chan struct{})
	var wg sync.WaitGroup
	var completed atomic.Int32

	// One slow request blocks one slot
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = p.Submit(context.Background(), func(ctx context.Context) error {
			<-release
			return nil
		})
	}()

	// Seven more fit in the remaining slots and complete independently
	for i := 0; i < 7; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Submit(context.Background(), func(ctx context.Context) error {
				completed.Add(1)
				return nil
			}); err != nil {
				t.Errorf("Submit failed: %v", err)
			}
		}()
	}

	deadline := time.After(2 * time.Second)
	for completed.Load() < 7 {
		select {
		case <-deadline:
			t.Fatalf("only %d of 7 fast requests completed while one slot blocked", completed.Load())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	close(release)
	wg.Wait()
}

func TestCloseDrainsInflightRequests(t *testing.T) {
	p, err := pool.New(pool.Config{
		Processes:         1,
		ThreadsPerProcess: 8,
		Timeout:           launcher.Unbounded(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	started := make(chan struct{})
	finished := make(chan error, 1)
	go func() {
		finished <- p.Submit(context.Background(), func(ctx context.Context) error {
			close(started)
			time.Sleep(100 * time.Millisecond)
			return nil
		})
	}()

	<-started
	if err := p.Close(time.Second); err != nil {
		t.Errorf("Close should drain in-flight work within the grace period: %v", err)
	}
	if err := <-finished; err != nil {
		t.Errorf("in-flight request should finish cleanly: %v", err)
	}

	if err := p.Submit(context.Background(), func(ctx context.Context) error { return nil }); !errors.Is(err, pool.ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed after Close, got %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	bad := []pool.Config{
		{Processes: 0, ThreadsPerProcess: 8, Timeout: launcher.Unbounded()},
		{Processes: 1, ThreadsPerProcess: 0, Timeout: launcher.Unbounded()},
	}
	for i, cfg := range bad {
		if _, err := pool.New(cfg); err == nil {
			t.Errorf("config[%d] should fail validation: %+v", i, cfg)
		}
	}
}
