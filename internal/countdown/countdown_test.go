package countdown

import (
	"context"
	"testing"
	"time"

	"github.com/existflow/lockin/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestEngine_CompletesOnce(t *testing.T) {
	clk := clock.NewFake(base)
	completions := 0
	var ticks []int
	e := New(5, clk, WithOnComplete(func() { completions++ }), WithOnTick(func(r int) { ticks = append(ticks, r) }))

	e.Start()
	for i := 0; i < 5; i++ {
		clk.Advance(time.Second)
		e.Tick()
	}

	assert.Equal(t, 1, completions)
	assert.Equal(t, 0, e.SecondsRemaining())
	assert.Equal(t, Completed, e.State())
	assert.Equal(t, []int{4, 3, 2, 1, 0}, ticks)

	// no further ticks or completions
	clk.Advance(3 * time.Second)
	e.Tick()
	e.Start()
	e.Tick()
	assert.Equal(t, 1, completions)
	assert.Len(t, ticks, 5)
	assert.Equal(t, Completed, e.State())
}

func TestEngine_PausedTimeIsNotCounted(t *testing.T) {
	clk := clock.NewFake(base)
	e := New(60, clk)

	e.Start()
	clk.Advance(2 * time.Second)
	e.Pause()
	clk.Advance(10 * time.Second)
	e.Start()
	clk.Advance(time.Second)
	e.Tick()

	assert.Equal(t, 3*time.Second, e.Elapsed())
	assert.Equal(t, 0, e.ElapsedMinutes())
	assert.Equal(t, 57, e.SecondsRemaining())
}

func TestEngine_ReconcilesAfterSuspension(t *testing.T) {
	clk := clock.NewFake(base)
	ticks := 0
	e := New(120, clk, WithOnTick(func(int) { ticks++ }))

	e.Start()
	// no Tick calls for 90 seconds
	clk.Advance(90 * time.Second)
	e.Tick()

	assert.Equal(t, 30, e.SecondsRemaining())
	assert.Equal(t, 90, ticks)
	assert.InDelta(t, 0.75, e.Progress(), 1e-9)
}

func TestEngine_SuspensionPastEndCompletes(t *testing.T) {
	clk := clock.NewFake(base)
	done := 0
	e := New(10, clk, WithOnComplete(func() { done++ }))

	e.Start()
	clk.Advance(time.Hour)
	e.Tick()

	assert.Equal(t, 1, done)
	assert.Equal(t, 0, e.SecondsRemaining())
	// elapsed keeps the real wall-clock time
	assert.Equal(t, time.Hour, e.Elapsed())
}

func TestEngine_PauseOnlyFromRunning(t *testing.T) {
	clk := clock.NewFake(base)
	e := New(30, clk)

	e.Pause()
	assert.Equal(t, Idle, e.State())

	e.Start()
	e.Start() // already running
	assert.Equal(t, Running, e.State())
	e.Pause()
	e.Pause()
	assert.Equal(t, Paused, e.State())
}

func TestEngine_Reset(t *testing.T) {
	clk := clock.NewFake(base)
	done := 0
	e := New(3, clk, WithOnComplete(func() { done++ }))

	e.Start()
	clk.Advance(3 * time.Second)
	e.Tick()
	require.Equal(t, Completed, e.State())

	e.Reset()
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, 3, e.SecondsRemaining())
	assert.Equal(t, time.Duration(0), e.Elapsed())

	e.Reset(90)
	assert.Equal(t, 90, e.SecondsRemaining())
	assert.Equal(t, 90, e.Initial())

	// a reset engine can complete again
	e.Start()
	clk.Advance(90 * time.Second)
	e.Tick()
	assert.Equal(t, 2, done)
}

func TestEngine_EndCreditsAtLeastOneMinute(t *testing.T) {
	clk := clock.NewFake(base)
	e := New(25*60, clk)

	e.Start()
	clk.Advance(10 * time.Second)
	assert.Equal(t, 1, e.End())
	assert.Equal(t, Cancelled, e.State())

	e.Start()
	assert.Equal(t, Cancelled, e.State())
}

func TestEngine_EndUsesWallClockElapsed(t *testing.T) {
	clk := clock.NewFake(base)
	e := New(50*60, clk)

	e.Start()
	clk.Advance(12*time.Minute + 40*time.Second)
	// no Tick since start
	assert.Equal(t, 13, e.End())
	assert.Equal(t, 13, e.End())
}

func TestEngine_EndWhileIdle(t *testing.T) {
	e := New(60, clock.NewFake(base))
	assert.Equal(t, 1, e.End())
	assert.Equal(t, Cancelled, e.State())
}

func TestEngine_OnCompleteReplaced(t *testing.T) {
	clk := clock.NewFake(base)
	first, second := 0, 0
	e := New(1, clk, WithOnComplete(func() { first++ }))
	e.OnComplete(func() { second++ })

	e.Start()
	clk.Advance(time.Second)
	e.Tick()
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestEngine_RunStopsOnCompletion(t *testing.T) {
	done := make(chan struct{})
	e := New(1, clock.Real{}, WithOnComplete(func() { close(done) }))
	e.Start()

	err := e.Run(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)

	select {
	case <-done:
	default:
		t.Fatal("completion callback did not fire")
	}
	assert.Equal(t, Completed, e.State())
}

func TestEngine_RunCancelled(t *testing.T) {
	e := New(3600, clock.Real{})
	e.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := e.Run(ctx, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Running, e.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "paused", Paused.String())
	assert.True(t, Cancelled.Done())
	assert.False(t, Running.Done())
}
