// Package batch implements the background task coordinator. A Coordinator
// accepts an ordered batch of items, fans them out across a bounded worker
// pool without blocking the caller, and exposes a poll based lifecycle flag
// plus an ordered outcome list drained once the run is done.
//
// A Coordinator drives exactly one run. After the caller drained the results
// it builds a fresh instance instead of reusing the old one.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/conveyorhq/conveyor/internal/model"
	"github.com/conveyorhq/conveyor/internal/parallel"
	"github.com/conveyorhq/conveyor/internal/proc"
)

// State is the coarse lifecycle flag. It only moves forward:
// Uninitialized -> Initialized -> Running -> Done.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Coordinator owns the staged item list, the lifecycle flag and the outcome
// list of one run. All methods are safe for concurrent use; State and
// TakeResults never block, so a UI loop can call them every tick.
type Coordinator struct {
	run   proc.Func
	limit int

	state atomic.Int32

	itemsMu sync.Mutex
	items   []model.Item

	// the worker posts exactly one completion message here; readers drain it
	// non blockingly, which makes observing StateDone happen after the full
	// outcome list was written
	completed chan []model.Outcome

	resultsMu sync.Mutex
	results   []model.Outcome

	// handle of the in-flight run, kept so an abort can be added later
	// without reshaping the public contract
	cancel context.CancelFunc
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithWorkers caps the pool size. Values < 1 keep the default, which is the
// available hardware parallelism.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n >= 1 {
			c.limit = n
		}
	}
}

// New builds a fresh Coordinator in StateUninitialized around the injected
// per-item processing function.
func New(run proc.Func, opts ...Option) *Coordinator {
	c := &Coordinator{
		run:       run,
		limit:     runtime.NumCPU(),
		completed: make(chan []model.Outcome, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetItems replaces the staged batch wholesale and moves the flag to
// StateInitialized. Previously staged items are discarded; the caller's
// slice is copied, so later mutations of it do not leak into the run.
func (c *Coordinator) SetItems(items []model.Item) {
	c.itemsMu.Lock()
	c.items = append([]model.Item(nil), items...)
	c.itemsMu.Unlock()
	c.state.Store(int32(StateInitialized))
}

// Start spawns the run and returns immediately, it never blocks on the
// items being processed. Unless SetItems moved the coordinator to
// StateInitialized first, Start refuses with model.ErrNotReady — a stale or
// empty staging list is never run silently.
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateInitialized), int32(StateRunning)) {
		return fmt.Errorf("start in state %s: %w", State(c.state.Load()), model.ErrNotReady)
	}

	c.itemsMu.Lock()
	items := append([]model.Item(nil), c.items...)
	c.itemsMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go func() {
		defer cancel()
		mapped := parallel.Map(runCtx, c.limit, items, func(ctx context.Context, item model.Item) (struct{}, error) {
			return struct{}{}, c.run(ctx, item)
		})
		outcomes := make([]model.Outcome, len(items))
		for i, r := range mapped {
			outcomes[i] = model.Outcome{Item: items[i], Err: r.Err}
		}
		c.completed <- outcomes
	}()

	return nil
}

// State reports the current lifecycle flag without blocking. Draining the
// completion message happens here (and in TakeResults), so this is the only
// place StateRunning flips to StateDone.
func (c *Coordinator) State() State {
	c.drain()
	return State(c.state.Load())
}

// TakeResults returns the ordered outcome list of a finished run, one
// outcome per submitted item. While the run has not been observed as done it
// returns nil — never partial data. Repeated calls return the same list.
func (c *Coordinator) TakeResults() []model.Outcome {
	c.drain()
	if State(c.state.Load()) != StateDone {
		return nil
	}
	c.resultsMu.Lock()
	defer c.resultsMu.Unlock()
	return c.results
}

// drain performs the non blocking receive of the single completion message.
// Results are stored before the flag flips, so any reader that loads
// StateDone also sees the complete outcome list.
func (c *Coordinator) drain() {
	select {
	case outcomes := <-c.completed:
		c.resultsMu.Lock()
		c.results = outcomes
		c.resultsMu.Unlock()
		c.state.Store(int32(StateDone))
	default:
	}
}
