// Package pool models the application server's concurrency shape as an
// explicit abstraction: a supervisor owning a fixed set of worker
// processes, each multiplexing a fixed number of request slots. The
// request timeout recycles a worker the way a pre-fork server does; a
// worker crash with no restart policy brings the whole pool down.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/gantryhq/gantry/internal/launcher"
)

var (
	// ErrRequestTimeout is returned when a bounded timeout terminates a
	// request. The worker handling it is recycled.
	ErrRequestTimeout = errors.New("request exceeded the configured timeout")

	// ErrPoolClosed is returned by Submit after the pool has shut down,
	// including after a worker crash.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrWorkerCrashed is returned for the request whose handler panicked.
	ErrWorkerCrashed = errors.New("worker crashed")
)

// Request is one unit of inbound work. The handler must honor ctx; under a
// bounded timeout ctx is cancelled when the deadline passes.
type Request func(ctx context.Context) error

// Config fixes the pool shape for the lifetime of the pool.
type Config struct {
	Processes         int
	ThreadsPerProcess int
	Timeout           launcher.RequestTimeout
}

func (c Config) validate() error {
	if c.Processes < 1 {
		return fmt.Errorf("process count must be >= 1, got %d", c.Processes)
	}
	if c.ThreadsPerProcess < 1 {
		return fmt.Errorf("threads per process must be >= 1, got %d", c.ThreadsPerProcess)
	}
	return nil
}

// worker stands in for one server process: a bounded set of request slots
// sharing process memory. Synchronization of anything the handlers share
// is the application's concern, exactly as with OS threads.
type worker struct {
	gen   uint64
	slots *semaphore.Weighted
}

// Pool is the supervisor. Workers are replaced on recycle but their count
// never changes after New.
type Pool struct {
	cfg Config

	mu      sync.Mutex
	workers []*worker
	gen     uint64

	next     atomic.Uint64
	inflight sync.WaitGroup

	closeOnce sync.Once
	closed    chan struct{}
}

// New builds a pool with the given shape. The timeout must be constructed
// through the launcher package; there is no implicit default.
func New(cfg Config) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:     cfg,
		workers: make([]*worker, cfg.Processes),
		closed:  make(chan struct{}),
	}
	for i := range p.workers {
		p.workers[i] = p.newWorker()
	}
	return p, nil
}

func (p *Pool) newWorker() *worker {
	p.gen++
	return &worker{
		gen:   p.gen,
		slots: semaphore.NewWeighted(int64(p.cfg.ThreadsPerProcess)),
	}
}

func (p *Pool) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

// Submit assigns the request to one slot of one worker and runs it to
// completion, timeout, or crash. It blocks while all slots of the chosen
// worker are busy; blocking work inside a handler occupies only its own
// slot.
func (p *Pool) Submit(ctx context.Context, req Request) error {
	if p.isClosed() {
		return ErrPoolClosed
	}

	idx := int(p.next.Add(1)-1) % p.cfg.Processes

	p.mu.Lock()
	w := p.workers[idx]
	p.mu.Unlock()

	if err := w.slots.Acquire(ctx, 1); err != nil {
		return err
	}

	if p.isClosed() {
		w.slots.Release(1)
		return ErrPoolClosed
	}

	p.inflight.Add(1)
	defer p.inflight.Done()

	if p.cfg.Timeout.IsUnbounded() {
		err := p.runDirect(ctx, req)
		w.slots.Release(1)
		return err
	}
	return p.runBounded(ctx, req, idx, w)
}

// runDirect executes the handler with no deadline. A panic closes the
// pool: one worker, no restart policy.
func (p *Pool) runDirect(ctx context.Context, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.fail()
			err = fmt.Errorf("%w: %v", ErrWorkerCrashed, r)
		}
	}()
	return req(ctx)
}

// runBounded executes the handler under the configured deadline. On
// expiry the request is abandoned, the worker is recycled, and the caller
// sees ErrRequestTimeout.
func (p *Pool) runBounded(ctx context.Context, req Request, idx int, w *worker) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout.Duration())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrWorkerCrashed, r)
			}
		}()
		done <- req(reqCtx)
	}()

	select {
	case err := <-done:
		w.slots.Release(1)
		if errors.Is(err, ErrWorkerCrashed) {
			p.fail()
		}
		return err

	case <-reqCtx.Done():
		if ctx.Err() != nil {
			// Caller cancellation, not the request deadline.
			w.slots.Release(1)
			return ctx.Err()
		}
		// The abandoned handler keeps its slot on the old worker; the
		// replacement starts with a full set of slots.
		p.recycle(idx, w)
		return ErrRequestTimeout
	}
}

// recycle replaces the worker in slot idx, unless another timeout already
// replaced it.
func (p *Pool) recycle(idx int, old *worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.workers[idx] == old {
		p.workers[idx] = p.newWorker()
	}
}

// fail shuts the pool down after a crash. Submissions in flight finish on
// their own terms; new ones are refused.
func (p *Pool) fail() {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
}

// Close stops accepting work and waits up to grace for in-flight requests
// to drain. It returns an error if the grace period expires first.
func (p *Pool) Close(grace time.Duration) error {
	p.closeOnce.Do(func() {
		close(p.closed)
	})

	drained := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(drained)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-drained:
		return nil
	case <-timer.C:
		return fmt.Errorf("shutdown grace period of %s expired with requests in flight", grace)
	}
}
