package focus

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/existflow/lockin/internal/clock"
	"github.com/existflow/lockin/internal/coordinator"
	"github.com/existflow/lockin/internal/countdown"
	"github.com/existflow/lockin/internal/db"
	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func openKV(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "lockin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestHandoff_TakeIsAtMostOnce(t *testing.T) {
	h := NewHandoff(openKV(t))
	ctx := context.Background()

	require.NoError(t, h.Put(ctx, model.PendingSession{Mode: model.ModeDeepWork, Duration: 60, Goal: "ship"}))

	p, err := h.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ModeDeepWork, p.Mode)
	assert.Equal(t, 60, p.Duration)

	_, err = h.Take(ctx)
	assert.ErrorIs(t, err, ErrNoPendingSession)
}

func TestHandoff_EmptySlot(t *testing.T) {
	_, err := NewHandoff(openKV(t)).Take(context.Background())
	assert.ErrorIs(t, err, ErrNoPendingSession)
}

func TestHandoff_PutValidates(t *testing.T) {
	h := NewHandoff(openKV(t))
	err := h.Put(context.Background(), model.PendingSession{Mode: model.ModeGym, Duration: 0, Goal: "legs"})
	assert.True(t, model.IsValidation(err))
}

func TestHandoff_PutReplaces(t *testing.T) {
	h := NewHandoff(openKV(t))
	ctx := context.Background()
	require.NoError(t, h.Put(ctx, model.PendingSession{Mode: model.ModeStudy, Duration: 25, Goal: "first"}))
	require.NoError(t, h.Put(ctx, model.PendingSession{Mode: model.ModeBuild, Duration: 50, Goal: "second"}))

	p, err := h.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", p.Goal)
}

func TestHandoff_InvalidPayloadIsDropped(t *testing.T) {
	kv := openKV(t)
	ctx := context.Background()
	require.NoError(t, kv.Put(ctx, PendingSessionKey, map[string]any{"mode": "nap", "duration": 10, "goal": "x"}))

	h := NewHandoff(kv)
	_, err := h.Take(ctx)
	assert.ErrorIs(t, err, ErrNoPendingSession)
	_, err = h.Take(ctx)
	assert.ErrorIs(t, err, ErrNoPendingSession)
}

type runnerFixture struct {
	clk    *clock.Fake
	remote *store.Memory
	local  *store.Memory
	coord  *coordinator.Coordinator
}

func newRunnerFixture() *runnerFixture {
	f := &runnerFixture{
		clk:    clock.NewFake(base),
		remote: store.NewMemory(store.WithName("remote")),
		local:  store.NewMemory(store.WithName("local"), store.WithIDPrefix(model.LocalIDPrefix)),
	}
	f.coord = coordinator.New(f.remote, f.local, coordinator.WithLogger(logger.Discard()), coordinator.WithClock(f.clk))
	return f
}

func TestRunner_EarlyEndSavesOnce(t *testing.T) {
	f := newRunnerFixture()
	ctx := context.Background()

	r, err := NewRunner(model.PendingSession{Mode: model.ModeBuild, Duration: 50, Goal: "landing page"}, f.coord, f.clk, WithUser("user-1"))
	require.NoError(t, err)

	r.Start()
	f.clk.Advance(12*time.Minute + 40*time.Second)

	s, err := r.Finish(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 50, s.DurationMinutes)
	require.NotNil(t, s.EndedAt)
	assert.Equal(t, base.Add(12*time.Minute+40*time.Second), *s.EndedAt)
	assert.Equal(t, 13*time.Minute, s.EndedAt.Sub(s.StartedAt))
	require.NotNil(t, s.FocusRating)
	assert.Equal(t, 4, *s.FocusRating)
	require.NotNil(t, s.UserID)
	assert.Equal(t, "user-1", *s.UserID)
	assert.Equal(t, 26, r.CompletionPercent())

	_, err = r.Finish(ctx, 5)
	assert.ErrorIs(t, err, ErrAlreadySaved)

	list, err := f.remote.ListSessions(ctx, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRunner_ImmediateEndCreditsOneMinute(t *testing.T) {
	f := newRunnerFixture()
	r, err := NewRunner(model.PendingSession{Mode: model.ModeStudy, Duration: 25, Goal: "flashcards"}, f.coord, f.clk)
	require.NoError(t, err)

	r.Start()
	f.clk.Advance(5 * time.Second)
	s, err := r.Finish(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, s.EndedAt.Sub(s.StartedAt))
	assert.Nil(t, s.FocusRating)
	assert.Nil(t, s.UserID)
}

func TestRunner_NaturalCompletion(t *testing.T) {
	f := newRunnerFixture()
	r, err := NewRunner(model.PendingSession{Mode: model.ModeGym, Duration: 1, Goal: "plank"}, f.coord, f.clk)
	require.NoError(t, err)

	r.Start()
	f.clk.Advance(time.Minute)
	r.Engine().Tick()
	require.Equal(t, countdown.Completed, r.Engine().State())

	assert.Equal(t, 1, r.Stop())
	assert.Equal(t, 100, r.CompletionPercent())

	s, err := r.Finish(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, s.EndedAt.Sub(s.StartedAt))
}

func TestRunner_SaveFallsBackToLocal(t *testing.T) {
	f := newRunnerFixture()
	f.remote.SetErr(store.ErrUnavailable)

	r, err := NewRunner(model.PendingSession{Mode: model.ModeContent, Duration: 90, Goal: "edit"}, f.coord, f.clk)
	require.NoError(t, err)
	r.Start()
	f.clk.Advance(30 * time.Minute)

	s, err := r.Finish(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, model.IsLocalID(s.ID))
	assert.True(t, r.Saved())
}

type failingSaver struct{ calls int }

func (f *failingSaver) SaveSession(ctx context.Context, req model.NewSession) (model.Session, error) {
	f.calls++
	if f.calls == 1 {
		return model.Session{}, errors.New("disk full")
	}
	return req.Session(), nil
}

func TestRunner_FinishRetriesAfterError(t *testing.T) {
	clk := clock.NewFake(base)
	saver := &failingSaver{}
	r, err := NewRunner(model.PendingSession{Mode: model.ModeStudy, Duration: 25, Goal: "read"}, saver, clk)
	require.NoError(t, err)
	r.Start()
	clk.Advance(10 * time.Minute)

	_, err = r.Finish(context.Background(), 2)
	require.Error(t, err)
	assert.False(t, r.Saved())

	clk.Advance(time.Minute)
	s, err := r.Finish(context.Background(), 2)
	require.NoError(t, err)
	// credited minutes were fixed when the session was stopped
	assert.Equal(t, 10*time.Minute, s.EndedAt.Sub(s.StartedAt))
	assert.Equal(t, 2, saver.calls)
}

func TestNewRunner_RejectsInvalidPending(t *testing.T) {
	_, err := NewRunner(model.PendingSession{Mode: model.ModeStudy, Duration: 481, Goal: "x"}, nil, nil)
	assert.True(t, model.IsValidation(err))
}

func session(started time.Time, minutes int) model.Session {
	ended := started.Add(time.Duration(minutes) * time.Minute)
	return model.Session{Mode: model.ModeStudy, Goal: "g", DurationMinutes: minutes, StartedAt: started, EndedAt: &ended}
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		sessions []model.Session
		want     Stats
	}{
		{"empty", nil, Stats{}},
		{
			"today and two days before",
			[]model.Session{
				session(now.Add(-2*time.Hour), 25),
				session(now.Add(-3*time.Hour), 50),
				session(now.AddDate(0, 0, -1), 30),
				session(now.AddDate(0, 0, -2), 15),
			},
			Stats{TotalSessions: 4, TotalMinutes: 120, CurrentStreak: 3},
		},
		{
			"streak from yesterday",
			[]model.Session{session(now.AddDate(0, 0, -1), 20), session(now.AddDate(0, 0, -2), 20)},
			Stats{TotalSessions: 2, TotalMinutes: 40, CurrentStreak: 2},
		},
		{
			"gap breaks streak",
			[]model.Session{session(now.Add(-time.Hour), 10), session(now.AddDate(0, 0, -3), 10)},
			Stats{TotalSessions: 2, TotalMinutes: 20, CurrentStreak: 1},
		},
		{
			"stale history",
			[]model.Session{session(now.AddDate(0, 0, -4), 60)},
			Stats{TotalSessions: 1, TotalMinutes: 60, CurrentStreak: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStats(tt.sessions, now))
		})
	}
}

func TestComputeStats_RunningSessionCountsToNow(t *testing.T) {
	now := base.Add(45 * time.Minute)
	running := model.Session{Mode: model.ModeBuild, Goal: "g", DurationMinutes: 90, StartedAt: base}
	st := ComputeStats([]model.Session{running}, now)
	assert.Equal(t, 45, st.TotalMinutes)
	assert.Equal(t, 1, st.CurrentStreak)
}
