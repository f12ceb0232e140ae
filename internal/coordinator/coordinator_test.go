package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/existflow/lockin/internal/clock"
	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	remote *store.Memory
	local  *store.Memory
	coord  *Coordinator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	now := func() time.Time { return base }
	f := &fixture{
		remote: store.NewMemory(store.WithName("remote"), store.WithNow(now)),
		local:  store.NewMemory(store.WithName("local"), store.WithIDPrefix(model.LocalIDPrefix), store.WithNow(now)),
	}
	opts = append([]Option{WithLogger(logger.Discard()), WithClock(clock.NewFake(base))}, opts...)
	f.coord = New(f.remote, f.local, opts...)
	return f
}

func newCommitment() model.NewCommitment {
	return model.NewCommitment{Alias: "ALEX", Goal: "ship the release", DurationMinutes: 50}
}

func count(t *testing.T, s store.Store) int {
	t.Helper()
	list, err := s.ListCommitments(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	return len(list)
}

func TestCreateCommitment_RemoteFailureFallsBackOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.SetErr(store.ErrUnavailable)

	wall := NewWall()
	c, err := f.coord.CreateCommitment(ctx, newCommitment())
	require.NoError(t, err)
	wall.Prepend(c)

	assert.True(t, model.IsLocalID(c.ID))
	assert.Equal(t, 1, wall.Len())
	assert.Equal(t, 1, count(t, f.local))

	f.remote.SetErr(nil)
	assert.Equal(t, 0, count(t, f.remote))
}

func TestCreateCommitment_RemoteSuccessWithFeedEcho(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	events, stop := f.coord.Watch(ctx)
	defer stop()
	require.NotNil(t, events)

	wall := NewWall()
	c, err := f.coord.CreateCommitment(ctx, newCommitment())
	require.NoError(t, err)
	assert.False(t, model.IsLocalID(c.ID))
	wall.Prepend(c)

	// the feed echoes the same insert
	ev := <-events
	assert.Equal(t, store.EventInsert, ev.Type)
	assert.False(t, wall.Apply(ev))

	assert.Equal(t, 1, wall.Len())
	assert.Equal(t, 0, count(t, f.local))
}

func TestCreateCommitment_FeedBeforeWriteResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	events, stop := f.coord.Watch(ctx)
	defer stop()

	wall := NewWall()
	c, err := f.coord.CreateCommitment(ctx, newCommitment())
	require.NoError(t, err)

	assert.True(t, wall.Apply(<-events))
	assert.False(t, wall.Prepend(c))
	assert.Equal(t, 1, wall.Len())
}

func TestCreateCommitment_ValidationWritesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.CreateCommitment(context.Background(), model.NewCommitment{Alias: "  ", Goal: "g", DurationMinutes: 10})
	assert.True(t, model.IsValidation(err))

	_, err = f.coord.CreateCommitment(context.Background(), model.NewCommitment{Alias: "a", Goal: "g"})
	assert.True(t, model.IsValidation(err))

	assert.Equal(t, 0, count(t, f.remote))
	assert.Equal(t, 0, count(t, f.local))
}

func TestCreateCommitment_LocalOnlyWithoutRemote(t *testing.T) {
	local := store.NewMemory(store.WithName("local"), store.WithIDPrefix(model.LocalIDPrefix))
	coord := New(nil, local, WithLogger(logger.Discard()))
	assert.False(t, coord.Remote())

	c, err := coord.CreateCommitment(context.Background(), newCommitment())
	require.NoError(t, err)
	assert.True(t, model.IsLocalID(c.ID))

	events, stop := coord.Watch(context.Background())
	assert.Nil(t, events)
	stop()
	assert.Equal(t, 0, local.Subscribers())
}

func TestCreateCommitment_RemoteTimeoutFallsBack(t *testing.T) {
	f := newFixture(t)
	slow := &hangingStore{Memory: f.remote}
	coord := New(slow, f.local, WithLogger(logger.Discard()), WithRemoteTimeout(20*time.Millisecond))

	c, err := coord.CreateCommitment(context.Background(), newCommitment())
	require.NoError(t, err)
	assert.True(t, model.IsLocalID(c.ID))
}

func TestCreateCommitment_CancelledContextIsNotAbsorbed(t *testing.T) {
	f := newFixture(t)
	slow := &hangingStore{Memory: f.remote}
	coord := New(slow, f.local, WithLogger(logger.Discard()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := coord.CreateCommitment(ctx, newCommitment())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, count(t, f.local))
}

func TestCompleteCommitment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	remoteRec, err := f.coord.CreateCommitment(ctx, newCommitment())
	require.NoError(t, err)

	done, err := f.coord.CompleteCommitment(ctx, remoteRec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)

	f.remote.SetErr(store.ErrUnavailable)
	localRec, err := f.coord.CreateCommitment(ctx, newCommitment())
	require.NoError(t, err)
	f.remote.SetErr(nil)

	done, err = f.coord.CompleteCommitment(ctx, localRec.ID)
	require.NoError(t, err)
	assert.Equal(t, localRec.ID, done.ID)
	assert.Equal(t, model.StatusCompleted, done.Status)
}

func TestCompleteCommitment_NotFoundSurfaced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coord.CompleteCommitment(ctx, "6f1c2c8e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.coord.CompleteCommitment(ctx, "local-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.coord.CompleteCommitment(ctx, " ")
	assert.True(t, model.IsValidation(err))
}

func TestSaveSession_FallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.SetErr(store.ErrUnavailable)

	uid := "user-1"
	s, err := f.coord.SaveSession(ctx, model.NewSession{
		UserID: &uid, Mode: model.ModeBuild, Goal: "mvp", DurationMinutes: 50,
		StartedAt: base, EndedAt: base.Add(50 * time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, model.IsLocalID(s.ID))

	list, err := f.coord.ListSessions(ctx, uid, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, s.ID, list[0].ID)
}

func TestListSessions_RequiresIdentity(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.ListSessions(context.Background(), "", 10)
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}

func TestListSessions_EmptyIsEmpty(t *testing.T) {
	f := newFixture(t)
	list, err := f.coord.ListSessions(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListSessions_RemoteRejectionFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := "user-1"
	_, err := f.local.InsertSession(ctx, model.Session{UserID: &uid, Mode: model.ModeGym, Goal: "legs", DurationMinutes: 30, StartedAt: base})
	require.NoError(t, err)

	// an expired remote token is a backend failure, not a missing identity
	f.remote.SetErr(store.ErrUnauthorized)
	list, err := f.coord.ListSessions(ctx, uid, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLoad_FallsBackAndReportsSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.coord.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "remote", res.Source)
	assert.NotNil(t, res.Commitments)

	wall := NewWall(res.Commitments...)
	assert.True(t, wall.Placeholder())

	f.remote.SetErr(store.ErrUnavailable)
	_, err = f.coord.CreateCommitment(ctx, newCommitment())
	require.NoError(t, err)

	res, err = f.coord.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "local", res.Source)
	assert.Len(t, res.Commitments, 1)
}

func TestLoad_BothFail(t *testing.T) {
	f := newFixture(t)
	f.remote.SetErr(store.ErrUnavailable)
	f.local.SetErr(store.ErrUnavailable)

	_, err := f.coord.Load(context.Background())
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestWatch_StopDetaches(t *testing.T) {
	f := newFixture(t)
	_, stop := f.coord.Watch(context.Background())
	assert.Equal(t, 1, f.remote.Subscribers())
	stop()
	stop()
	assert.Equal(t, 0, f.remote.Subscribers())
}

func TestWatch_SubscribeFailureIsAbsorbed(t *testing.T) {
	f := newFixture(t)
	f.remote.SetErr(store.ErrUnavailable)
	events, stop := f.coord.Watch(context.Background())
	defer stop()
	assert.Nil(t, events)
}

// hangingStore blocks remote commitment inserts until the context ends
type hangingStore struct {
	*store.Memory
}

func (h *hangingStore) InsertCommitment(ctx context.Context, c model.Commitment) (model.Commitment, error) {
	<-ctx.Done()
	return model.Commitment{}, ctx.Err()
}

// countingStore records status writes that reach it
type countingStore struct {
	*store.Memory
	updates int
}

func (c *countingStore) UpdateCommitmentStatus(ctx context.Context, id string, status model.Status) (model.Commitment, error) {
	c.updates++
	return c.Memory.UpdateCommitmentStatus(ctx, id, status)
}

func TestCompleteCommitment_LocalIDNeverReachesRemote(t *testing.T) {
	f := newFixture(t)
	remote := &countingStore{Memory: f.remote}
	coord := New(remote, f.local, WithLogger(logger.Discard()), WithClock(clock.NewFake(base)))
	ctx := context.Background()

	localRec, err := f.local.InsertCommitment(ctx, newCommitment().Commitment())
	require.NoError(t, err)
	done, err := coord.CompleteCommitment(ctx, localRec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	assert.Equal(t, 0, remote.updates)

	remoteRec, err := coord.CreateCommitment(ctx, newCommitment())
	require.NoError(t, err)
	_, err = coord.CompleteCommitment(ctx, remoteRec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, remote.updates)
}
