package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/existflow/lockin/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "anon-key"

func newTestClient(t *testing.T) (*Client, *store.Memory, string) {
	t.Helper()
	records := store.NewMemory(store.WithName("postgres"))
	srv := server.New(records, server.NewMemoryAccounts(), server.Config{
		APIKey:            testKey,
		ExposeMagicTokens: true,
	})
	hs := httptest.NewServer(srv.Router())
	t.Cleanup(hs.Close)

	authPath := filepath.Join(t.TempDir(), "auth.json")
	c, err := NewClient(Options{URL: hs.URL + "/", APIKey: testKey, AuthPath: authPath})
	require.NoError(t, err)
	return c, records, authPath
}

func TestClient_CommitmentRoundTrip(t *testing.T) {
	c, records, _ := newTestClient(t)
	ctx := context.Background()

	created, err := c.InsertCommitment(ctx, model.Commitment{
		Alias: "ALEX", Goal: "ship it", DurationMinutes: 50, Status: model.StatusInProgress,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.IsLocal())

	list, err := c.ListCommitments(ctx, store.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	done, err := c.UpdateCommitmentStatus(ctx, created.ID, model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)

	stored, err := records.ListCommitments(ctx, store.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored[0].Status)
}

func TestClient_ErrorMapping(t *testing.T) {
	c, records, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.InsertCommitment(ctx, model.Commitment{Alias: "A", Goal: "", DurationMinutes: 5, Status: model.StatusInProgress})
	assert.True(t, model.IsValidation(err), "got %v", err)

	_, err = c.UpdateCommitmentStatus(ctx, "missing", model.StatusCompleted)
	assert.ErrorIs(t, err, store.ErrNotFound)

	records.SetErr(errors.New("disk on fire"))
	_, err = c.ListCommitments(ctx, store.ListOptions{})
	assert.ErrorIs(t, err, store.ErrUnavailable)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestClient_ExpiredStatusRejectedBeforeRequest(t *testing.T) {
	c, _, _ := newTestClient(t)
	_, err := c.UpdateCommitmentStatus(context.Background(), "x", model.StatusExpired)
	assert.True(t, model.IsValidation(err))
}

func TestClient_WrongAPIKey(t *testing.T) {
	c, _, _ := newTestClient(t)
	c.apiKey = "nope"
	_, err := c.ListCommitments(context.Background(), store.ListOptions{})
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}

func TestClient_ServerDown(t *testing.T) {
	hs := httptest.NewServer(http.NotFoundHandler())
	url := hs.URL
	hs.Close()

	c, err := NewClient(Options{URL: url, AuthPath: filepath.Join(t.TempDir(), "auth.json")})
	require.NoError(t, err)

	_, err = c.ListCommitments(context.Background(), store.ListOptions{})
	assert.ErrorIs(t, err, store.ErrUnavailable)

	_, err = c.Subscribe(context.Background(), store.Handlers{})
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestClient_ListSessionsNeedsSignIn(t *testing.T) {
	c, _, _ := newTestClient(t)
	_, err := c.ListSessions(context.Background(), store.ListOptions{})
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}

func TestClient_RegisterPersistsAuth(t *testing.T) {
	c, _, authPath := newTestClient(t)
	ctx := context.Background()

	id, err := c.Register(ctx, "sam@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", id.Email)
	assert.True(t, c.IsLoggedIn())

	info, err := os.Stat(authPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// a second client picks up the saved token
	again, err := NewClient(Options{URL: c.URL(), APIKey: testKey, AuthPath: authPath})
	require.NoError(t, err)
	require.NotNil(t, again.Identity())
	assert.Equal(t, id.ID, again.Identity().ID)

	me, err := again.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, id.ID, me.ID)

	ended := time.Now().UTC()
	saved, err := again.InsertSession(ctx, model.Session{
		Mode: model.ModeDeepWork, Goal: "write", DurationMinutes: 25,
		StartedAt: ended.Add(-25 * time.Minute), EndedAt: &ended,
	})
	require.NoError(t, err)
	require.NotNil(t, saved.UserID)
	assert.Equal(t, id.ID, *saved.UserID)

	sessions, err := again.ListSessions(ctx, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	require.NoError(t, again.Logout(ctx))
	assert.False(t, again.IsLoggedIn())
	assert.Nil(t, again.Identity())
	_, err = os.Stat(authPath)
	assert.True(t, os.IsNotExist(err))

	// the old token was revoked server side
	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}

func TestClient_LoginWrongPassword(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()
	_, err := c.Register(ctx, "sam@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = c.Login(ctx, "sam@example.com", "battery-staple")
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}

func TestClient_MagicLink(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()

	token, err := c.RequestMagicLink(ctx, "kim@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := c.VerifyMagicLink(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "kim@example.com", id.Email)
	assert.True(t, c.IsLoggedIn())

	_, err = c.VerifyMagicLink(ctx, token)
	assert.Error(t, err)
}

func TestClient_SubscribeReceivesInsert(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()

	got := make(chan store.ChangeEvent, 4)
	sub, err := c.Subscribe(ctx, store.Handlers{
		OnInsert: func(rec model.Commitment) { got <- store.ChangeEvent{Type: store.EventInsert, Record: rec} },
		OnUpdate: func(rec model.Commitment) { got <- store.ChangeEvent{Type: store.EventUpdate, Record: rec} },
	})
	require.NoError(t, err)
	defer sub.Cancel()

	// the hub registers the client after the handshake; retry until it is seen
	var created model.Commitment
	require.Eventually(t, func() bool {
		rec, err := c.InsertCommitment(ctx, model.Commitment{
			Alias: "KIM", Goal: "read", DurationMinutes: 30, Status: model.StatusInProgress,
		})
		if err != nil {
			return false
		}
		created = rec
		select {
		case ev := <-got:
			return ev.Type == store.EventInsert && ev.Record.ID == created.ID
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	_, err = c.UpdateCommitmentStatus(ctx, created.ID, model.StatusCompleted)
	require.NoError(t, err)
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-got:
			if ev.Type != store.EventUpdate {
				continue
			}
			assert.Equal(t, created.ID, ev.Record.ID)
			assert.Equal(t, model.StatusCompleted, ev.Record.Status)
			return
		case <-deadline:
			t.Fatal("no update event")
		}
	}
}

func TestFeedURL(t *testing.T) {
	c := &Client{baseURL: "https://lockin.example.com"}
	assert.Equal(t, "wss://lockin.example.com/api/v1/feed", c.feedURL())
	c.baseURL = "http://localhost:8080"
	assert.Equal(t, "ws://localhost:8080/api/v1/feed", c.feedURL())
}
