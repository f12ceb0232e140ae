// Package countdown implements the focus timer.
//
// Remaining time is always derived from the clock: each reconciliation
// computes elapsed = accumulated + (now - resumedAt), so an engine that was
// not ticked for a while (a suspended terminal, a blocked UI loop) lands on
// the correct remaining time on the next Tick instead of drifting.
package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/existflow/lockin/internal/clock"
)

// State is the engine lifecycle state
type State int

const (
	Idle State = iota
	Running
	Paused
	Completed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Done reports whether the engine has finished, naturally or by End
func (s State) Done() bool {
	return s == Completed || s == Cancelled
}

// Engine is a drift-free countdown. Safe for concurrent use; callbacks run
// without the engine lock held, on the goroutine that reconciled.
type Engine struct {
	mu    sync.Mutex
	clock clock.Clock

	initial   int // seconds
	remaining int
	state     State

	accumulated time.Duration // run time before the current resume
	resumedAt   time.Time     // zero unless running

	onTick     func(remaining int)
	onComplete func()
}

// Option configures an Engine
type Option func(*Engine)

// WithOnTick sets the per-second callback
func WithOnTick(fn func(remaining int)) Option {
	return func(e *Engine) { e.onTick = fn }
}

// WithOnComplete sets the completion callback
func WithOnComplete(fn func()) Option {
	return func(e *Engine) { e.onComplete = fn }
}

// New creates an idle engine counting down from initialSeconds.
// A nil clock means the wall clock.
func New(initialSeconds int, clk clock.Clock, opts ...Option) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}
	if initialSeconds < 0 {
		initialSeconds = 0
	}
	e := &Engine{
		clock:     clk,
		initial:   initialSeconds,
		remaining: initialSeconds,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnTick replaces the per-second callback
func (e *Engine) OnTick(fn func(remaining int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTick = fn
}

// OnComplete replaces the completion callback
func (e *Engine) OnComplete(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = fn
}

// Start begins or resumes the countdown. No-op unless idle or paused.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Idle && e.state != Paused {
		return
	}
	e.resumedAt = e.clock.Now()
	e.state = Running
}

// Pause suspends a running countdown, folding in-flight time into the total
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.state != Running {
		e.mu.Unlock()
		return
	}
	fire := e.reconcile()
	if e.state == Running {
		e.accumulated += e.clock.Now().Sub(e.resumedAt)
		e.resumedAt = time.Time{}
		e.state = Paused
	}
	e.mu.Unlock()
	fire()
}

// Reset returns to idle with no elapsed time. An optional positive argument
// replaces the initial value.
func (e *Engine) Reset(newInitialSeconds ...int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(newInitialSeconds) > 0 && newInitialSeconds[0] > 0 {
		e.initial = newInitialSeconds[0]
	}
	e.remaining = e.initial
	e.accumulated = 0
	e.resumedAt = time.Time{}
	e.state = Idle
}

// End stops the countdown at the user's request and returns the minutes of
// focus to credit, never less than one. Ending a completed engine returns
// its credited minutes without changing state.
func (e *Engine) End() int {
	e.mu.Lock()
	fire := func() {}
	if !e.state.Done() {
		fire = e.reconcile()
	}
	if !e.state.Done() {
		e.accumulated = e.elapsedLocked()
		e.resumedAt = time.Time{}
		e.state = Cancelled
	}
	minutes := clock.RoundMinutes(e.elapsedLocked())
	e.mu.Unlock()
	fire()

	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// Tick reconciles remaining time with the clock. It emits one tick callback
// for every whole second that passed since the last reconciliation and fires
// completion once when the countdown reaches zero.
func (e *Engine) Tick() {
	e.mu.Lock()
	fire := e.reconcile()
	e.mu.Unlock()
	fire()
}

// reconcile updates remaining from the clock and returns the callbacks to
// run once the lock is released. Caller holds mu.
func (e *Engine) reconcile() func() {
	if e.state != Running {
		return func() {}
	}

	elapsed := int(e.elapsedLocked() / time.Second)
	next := e.initial - elapsed
	if next < 0 {
		next = 0
	}

	var ticks []int
	for r := e.remaining - 1; r >= next; r-- {
		ticks = append(ticks, r)
	}
	e.remaining = next

	completed := false
	if e.remaining == 0 {
		e.accumulated = e.elapsedLocked()
		e.resumedAt = time.Time{}
		e.state = Completed
		completed = true
	}

	onTick, onComplete := e.onTick, e.onComplete
	return func() {
		if onTick != nil {
			for _, r := range ticks {
				onTick(r)
			}
		}
		if completed && onComplete != nil {
			onComplete()
		}
	}
}

func (e *Engine) elapsedLocked() time.Duration {
	if e.state == Running {
		return e.accumulated + e.clock.Now().Sub(e.resumedAt)
	}
	return e.accumulated
}

// SecondsRemaining returns the remaining seconds as of the last reconciliation
func (e *Engine) SecondsRemaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// Initial returns the configured starting value in seconds
func (e *Engine) Initial() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initial
}

// Elapsed returns accumulated run time plus in-flight time when running
func (e *Engine) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsedLocked()
}

// ElapsedMinutes returns Elapsed rounded to the nearest whole minute
func (e *Engine) ElapsedMinutes() int {
	return clock.RoundMinutes(e.Elapsed())
}

// State returns the current state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Progress returns the completed fraction in [0, 1]
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initial == 0 {
		return 1
	}
	return float64(e.initial-e.remaining) / float64(e.initial)
}

// Run drives Tick from a ticker until the engine finishes or ctx is done
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			e.Tick()
			if e.State().Done() {
				return nil
			}
		}
	}
}
