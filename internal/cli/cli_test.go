package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/existflow/lockin/internal/config"
	"github.com/existflow/lockin/internal/db"
	"github.com/existflow/lockin/internal/focus"
	"github.com/existflow/lockin/internal/model"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitRequest_UpperCasesAlias(t *testing.T) {
	req := commitRequest(" alex ", []string{"ship", "the", "release"}, defaultCommitMinutes)
	require.NoError(t, req.Validate())
	assert.Equal(t, "ALEX", req.Alias)
	assert.Equal(t, "ship the release", req.Goal)
	assert.Equal(t, 60, req.DurationMinutes)
}

func TestFormatCommitment_DerivesStatus(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	c := model.Commitment{ID: "abc", Alias: "KIM", Goal: "read", DurationMinutes: 30, Status: model.StatusInProgress, CreatedAt: created}

	assert.Contains(t, formatCommitment(c, created.Add(10*time.Minute)), "20 min left")
	assert.Contains(t, formatCommitment(c, created.Add(30*time.Minute)), "expired")

	c.Status = model.StatusCompleted
	assert.Contains(t, formatCommitment(c, created.Add(2*time.Hour)), "[x]")
}

func TestParseRating(t *testing.T) {
	assert.Equal(t, 4, parseRating("4\n"))
	assert.Equal(t, 0, parseRating("\n"))
	assert.Equal(t, 0, parseRating("9"))
	assert.Equal(t, 0, parseRating("great"))
}

func TestSetConfigValue(t *testing.T) {
	t.Setenv("LOCKIN_HOME", t.TempDir())
	c := config.DefaultConfig()

	require.NoError(t, setConfigValue(c, "remote_url", "https://lockin.example.com/"))
	require.NoError(t, setConfigValue(c, "remote_key", "anon"))
	require.NoError(t, setConfigValue(c, "remote_timeout", "5s"))
	require.NoError(t, setConfigValue(c, "wall_limit", "20"))
	assert.Equal(t, "https://lockin.example.com", c.RemoteURL)
	assert.Equal(t, 5*time.Second, c.RemoteTimeout)
	assert.Equal(t, 20, c.WallLimit)
	assert.True(t, c.RemoteConfigured())

	assert.Error(t, setConfigValue(c, "wall_limit", "0"))
	assert.Error(t, setConfigValue(c, "remote_timeout", "soon"))
	assert.Error(t, setConfigValue(c, "colour", "blue"))

	require.NoError(t, unsetConfigValue(c, "remote_key"))
	assert.False(t, c.RemoteConfigured())
}

func TestOpenApp_LocalOnly(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOCKIN_HOME", dir)
	c := config.DefaultConfig()
	c.DBPath = filepath.Join(dir, "lockin.db")

	a, err := OpenApp(c)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.Nil(t, a.Remote)
	assert.False(t, a.Coord.Remote())

	ctx := context.Background()
	_, ok := a.Identity(ctx)
	assert.False(t, ok)

	u, err := a.DB.CreateLocalUser(ctx, "sam@example.com")
	require.NoError(t, err)
	id, ok := a.Identity(ctx)
	require.True(t, ok)
	assert.Equal(t, u.ID, id.ID)

	rec, err := a.Coord.CreateCommitment(ctx, commitRequest("sam", []string{"write"}, 25))
	require.NoError(t, err)
	assert.True(t, rec.IsLocal())
}

func openHandoff(t *testing.T) focus.Handoff {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "lockin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return focus.NewHandoff(database)
}

func TestPendingFromFlags_NothingQueuedPromptsForSetup(t *testing.T) {
	h := openHandoff(t)
	in := strings.NewReader("Linear algebra\nstudy\n50\n")

	p, err := pendingFromFlags(context.Background(), &cobra.Command{}, h, in, true)
	require.NoError(t, err)
	assert.Equal(t, model.PendingSession{Mode: model.ModeStudy, Duration: 50, Goal: "Linear algebra"}, p)
}

func TestPendingFromFlags_SetupKeepsDefaults(t *testing.T) {
	p, err := promptSetup(strings.NewReader("Write tests\n\n\n"), model.ModeDeepWork, 25)
	require.NoError(t, err)
	assert.Equal(t, model.ModeDeepWork, p.Mode)
	assert.Equal(t, 25, p.Duration)
}

func TestPendingFromFlags_SetupRejectsBadInput(t *testing.T) {
	_, err := promptSetup(strings.NewReader("\n\n\n"), model.ModeDeepWork, 25)
	assert.True(t, model.IsValidation(err))

	_, err = promptSetup(strings.NewReader("goal\nnap\n\n"), model.ModeDeepWork, 25)
	assert.True(t, model.IsValidation(err))

	_, err = promptSetup(strings.NewReader("goal\n\nlots\n"), model.ModeDeepWork, 25)
	assert.Error(t, err)
}

func TestPendingFromFlags_NonInteractiveNeedsQueue(t *testing.T) {
	h := openHandoff(t)
	_, err := pendingFromFlags(context.Background(), &cobra.Command{}, h, strings.NewReader(""), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no queued session")
}

func TestPendingFromFlags_QueuedSessionWins(t *testing.T) {
	h := openHandoff(t)
	queued := model.PendingSession{Mode: model.ModeBuild, Duration: 90, Goal: "ship"}
	require.NoError(t, h.Put(context.Background(), queued))

	p, err := pendingFromFlags(context.Background(), &cobra.Command{}, h, strings.NewReader(""), true)
	require.NoError(t, err)
	assert.Equal(t, queued, p)
}
