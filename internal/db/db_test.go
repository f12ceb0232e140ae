package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "lockin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetNow(func() time.Time { return base })
	return db
}

func TestInsertCommitment_AssignsLocalIDAndCreatedAt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	c, err := db.InsertCommitment(ctx, model.Commitment{
		Alias: "ALEX", Goal: "ship", DurationMinutes: 50, Status: model.StatusInProgress,
	})
	require.NoError(t, err)
	assert.True(t, model.IsLocalID(c.ID))
	assert.True(t, c.CreatedAt.Equal(base))

	list, err := db.ListCommitments(ctx, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c, list[0])
}

func TestInsertCommitment_RejectsExpired(t *testing.T) {
	db := openTestDB(t)
	_, err := db.InsertCommitment(context.Background(), model.Commitment{
		Alias: "a", Goal: "g", DurationMinutes: 5, Status: model.StatusExpired,
	})
	assert.True(t, model.IsValidation(err))
}

func TestListCommitments_NewestFirstWithLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := db.InsertCommitment(ctx, model.Commitment{
			Alias: "a", Goal: "g", DurationMinutes: 5, Status: model.StatusInProgress,
			CreatedAt: base.Add(time.Duration(i) * 1500 * time.Millisecond),
		})
		require.NoError(t, err)
	}

	list, err := db.ListCommitments(ctx, store.ListOptions{Limit: 3})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, list[0].CreatedAt.Equal(base.Add(4500*time.Millisecond)))
	assert.True(t, list[2].CreatedAt.Equal(base.Add(1500*time.Millisecond)))
}

func TestListCommitments_EmptyIsNotNil(t *testing.T) {
	db := openTestDB(t)
	list, err := db.ListCommitments(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestUpdateCommitmentStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	sid := "session-1"

	c, err := db.InsertCommitment(ctx, model.Commitment{
		Alias: "a", Goal: "g", DurationMinutes: 5, Status: model.StatusInProgress, SessionID: &sid,
	})
	require.NoError(t, err)

	updated, err := db.UpdateCommitmentStatus(ctx, c.ID, model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	require.NotNil(t, updated.SessionID)
	assert.Equal(t, sid, *updated.SessionID)

	_, err = db.UpdateCommitmentStatus(ctx, "local-missing", model.StatusCompleted)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = db.UpdateCommitmentStatus(ctx, c.ID, model.StatusExpired)
	assert.True(t, model.IsValidation(err))
}

func TestSessions_RoundTripAndFilter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	alice, bob := "alice", "bob"
	rating := 4
	ended := base.Add(25 * time.Minute)

	s, err := db.InsertSession(ctx, model.Session{
		UserID: &alice, Mode: model.ModeStudy, Goal: "read", DurationMinutes: 25,
		StartedAt: base, EndedAt: &ended, FocusRating: &rating,
	})
	require.NoError(t, err)
	assert.True(t, model.IsLocalID(s.ID))

	_, err = db.InsertSession(ctx, model.Session{
		UserID: &bob, Mode: model.ModeGym, Goal: "lift", DurationMinutes: 60, StartedAt: base,
	})
	require.NoError(t, err)

	list, err := db.ListSessions(ctx, store.ListOptions{UserID: alice})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, s, list[0])

	all, err := db.ListSessions(ctx, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSubscribe_IsNoop(t *testing.T) {
	db := openTestDB(t)
	sub, err := db.Subscribe(context.Background(), store.Handlers{})
	require.NoError(t, err)
	sub.Cancel()
	sub.Cancel()
	assert.Equal(t, "local", db.Name())
}

func TestLocalUser_CreateOverwritesAndSignOut(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.LocalUser(ctx)
	assert.ErrorIs(t, err, ErrNoLocalUser)

	first, err := db.CreateLocalUser(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sam", first.DisplayName)
	assert.Contains(t, model.AvatarColors, first.AvatarColor)

	second, err := db.CreateLocalUser(ctx, " riley@example.com ")
	require.NoError(t, err)

	got, err := db.LocalUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "riley@example.com", got.Email)
	assert.NotEqual(t, first.ID, got.ID)

	require.NoError(t, db.SignOutLocalUser(ctx))
	_, err = db.LocalUser(ctx)
	assert.ErrorIs(t, err, ErrNoLocalUser)

	_, err = db.CreateLocalUser(ctx, "  ")
	assert.True(t, model.IsValidation(err))
}

func TestTake_ReadsAtMostOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	in := model.PendingSession{Mode: model.ModeDeepWork, Duration: 60, Goal: "focus"}
	require.NoError(t, db.Put(ctx, "pending_session", in))

	var out model.PendingSession
	require.NoError(t, db.Take(ctx, "pending_session", &out))
	assert.Equal(t, in, out)

	err := db.Take(ctx, "pending_session", &out)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestTake_UndecodableValueIsStillConsumed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Put(ctx, "k", "not an object"))
	var out model.PendingSession
	assert.Error(t, db.Take(ctx, "k", &out))
	assert.ErrorIs(t, db.Take(ctx, "k", &out), ErrKeyNotFound)
}
