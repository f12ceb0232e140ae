package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/existflow/lockin/internal/config"
	"github.com/existflow/lockin/internal/coordinator"
	"github.com/existflow/lockin/internal/db"
	"github.com/existflow/lockin/internal/focus"
	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/remote"
	"github.com/existflow/lockin/internal/store"
)

// App bundles the stores a command works with
type App struct {
	Config  *config.Config
	DB      *db.DB
	Remote  *remote.Client // nil when remote credentials are absent
	Coord   *coordinator.Coordinator
	Handoff focus.Handoff
}

// cfg is loaded once per invocation in PersistentPreRunE
var cfg *config.Config

// OpenApp opens the local database and, when configured, the remote client
func OpenApp(c *config.Config) (*App, error) {
	if c == nil {
		c = config.DefaultConfig()
	}

	database, err := db.Open(c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &App{Config: c, DB: database, Handoff: focus.NewHandoff(database)}

	// primary stays a nil interface when the remote is off
	var primary store.Store
	if c.RemoteConfigured() {
		client, err := remote.NewClient(remote.Options{URL: c.RemoteURL, APIKey: c.RemoteKey})
		if err != nil {
			_ = database.Close()
			return nil, err
		}
		a.Remote = client
		primary = client
	}

	a.Coord = coordinator.New(primary, database,
		coordinator.WithRemoteTimeout(c.RemoteTimeout),
		coordinator.WithWallLimit(c.WallLimit),
	)

	logger.Debug("App opened",
		logger.F("db", c.DBPath),
		logger.F("remote", a.Remote != nil))
	return a, nil
}

// Close releases the local database
func (a *App) Close() error {
	return a.DB.Close()
}

// Identity returns whoever is signed in, remote account first, then the
// device-local user. ok is false when nobody is.
func (a *App) Identity(ctx context.Context) (model.Identity, bool) {
	if a.Remote != nil {
		if id := a.Remote.Identity(); id != nil {
			return *id, true
		}
	}
	u, err := a.DB.LocalUser(ctx)
	if err != nil {
		if !errors.Is(err, db.ErrNoLocalUser) {
			logger.Warn("Failed to read local user", logger.Err(err))
		}
		return model.Identity{}, false
	}
	return model.Identity{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, AvatarColor: u.AvatarColor}, true
}

func openApp() (*App, error) {
	return OpenApp(cfg)
}
