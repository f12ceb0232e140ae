package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/lockin/internal/clock"
	"github.com/existflow/lockin/internal/coordinator"
	"github.com/existflow/lockin/internal/focus"
	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
)

// Screen represents the current UI screen
type Screen int

const (
	ScreenWall Screen = iota
	ScreenCommit
	ScreenFocusSetup
	ScreenFocus
	ScreenRate
	ScreenHelp
)

// commit form fields
const (
	fieldAlias = iota
	fieldGoal
	fieldDuration
	fieldCount
)

// Deps are the services the TUI works against
type Deps struct {
	Coord    *coordinator.Coordinator
	Handoff  focus.Handoff
	Identity func(ctx context.Context) (model.Identity, bool)
	Clock    clock.Clock
}

// Model is the main TUI model
type Model struct {
	deps Deps
	ctx  context.Context

	// Wall state, owned by the update loop
	wall    *coordinator.Wall
	source  string
	loading bool
	cursor  int

	// Change feed
	events  <-chan store.ChangeEvent
	unwatch func()

	// UI state
	width  int
	height int
	screen Screen
	prev   Screen

	// Commit form
	inputs     []textinput.Model
	field      int
	focusAfter bool

	// Focus setup
	modeIdx   int
	presetIdx int
	custom    textinput.Model
	goal      textinput.Model

	// Running session
	runner   *focus.Runner
	progress progress.Model
	rating   int

	help    help.Model
	busy    bool
	message string
	err     error
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, deps Deps) Model {
	logger.Info("Initializing TUI model")
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 120
		ti.Width = 40
		inputs[i] = ti
	}
	inputs[fieldAlias].Placeholder = "Your alias"
	inputs[fieldAlias].CharLimit = 24
	inputs[fieldGoal].Placeholder = "What will you get done?"
	inputs[fieldDuration].Placeholder = "Minutes"
	inputs[fieldDuration].CharLimit = 3

	custom := textinput.New()
	custom.Placeholder = "Custom minutes (1-480)"
	custom.CharLimit = 3
	custom.Width = 24

	goal := textinput.New()
	goal.Placeholder = "Session goal"
	goal.CharLimit = 120
	goal.Width = 40

	modeIdx := 0
	for i, m := range model.Modes {
		if m == model.ModeDeepWork {
			modeIdx = i
		}
	}

	return Model{
		deps:     deps,
		ctx:      ctx,
		wall:     coordinator.NewWall(),
		loading:  true,
		screen:   ScreenWall,
		inputs:   inputs,
		modeIdx:  modeIdx,
		custom:   custom,
		goal:     goal,
		progress: progress.New(progress.WithGradient(string(InProgress), string(Primary))),
		help:     help.New(),
	}
}

// Run starts the TUI and blocks until it exits
func Run(ctx context.Context, deps Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewModel(ctx, deps)
	m.events, m.unwatch = deps.Coord.Watch(ctx)
	defer m.unwatch()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m *Model) selected() *model.Commitment {
	items := m.wall.Items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return nil
	}
	c := items[m.cursor]
	return &c
}

func (m *Model) clampCursor() {
	n := m.wall.Len()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) identity() (model.Identity, bool) {
	if m.deps.Identity == nil {
		return model.Identity{}, false
	}
	return m.deps.Identity(m.ctx)
}
