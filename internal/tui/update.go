package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/lockin/internal/coordinator"
	"github.com/existflow/lockin/internal/countdown"
	"github.com/existflow/lockin/internal/focus"
	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
)

// defaultCommitMinutes is the commit form's preselected duration
const defaultCommitMinutes = 60

// tickMsg is sent every second for time updates
type tickMsg time.Time

// wallLoadedMsg carries the initial or refreshed wall
type wallLoadedMsg struct {
	res coordinator.LoadResult
	err error
}

// feedMsg carries one change feed event; ok is false once the feed ends
type feedMsg struct {
	ev store.ChangeEvent
	ok bool
}

type committedMsg struct {
	rec   model.Commitment
	focus bool
	err   error
}

type completedMsg struct {
	rec model.Commitment
	err error
}

type handoffMsg struct {
	pending model.PendingSession
	err     error
}

type sessionSavedMsg struct {
	session model.Session
	err     error
}

// Init loads the wall and starts listening for feed events
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadWall(), m.waitForFeed(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) loadWall() tea.Cmd {
	coord, ctx := m.deps.Coord, m.ctx
	return func() tea.Msg {
		res, err := coord.Load(ctx)
		return wallLoadedMsg{res: res, err: err}
	}
}

// waitForFeed listens for the next change feed event
func (m Model) waitForFeed() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case ev := <-events:
			return feedMsg{ev: ev, ok: true}
		case <-ctx.Done():
			return feedMsg{}
		}
	}
}

func (m Model) createCommitment(req model.NewCommitment, thenFocus bool) tea.Cmd {
	coord, ctx := m.deps.Coord, m.ctx
	return func() tea.Msg {
		rec, err := coord.CreateCommitment(ctx, req)
		return committedMsg{rec: rec, focus: thenFocus, err: err}
	}
}

func (m Model) completeCommitment(id string) tea.Cmd {
	coord, ctx := m.deps.Coord, m.ctx
	return func() tea.Msg {
		rec, err := coord.CompleteCommitment(ctx, id)
		return completedMsg{rec: rec, err: err}
	}
}

// queueFocus hands p to the focus flow, then enters it
func (m Model) queueFocus(p model.PendingSession) tea.Cmd {
	h, ctx := m.deps.Handoff, m.ctx
	return func() tea.Msg {
		if err := h.Put(ctx, p); err != nil {
			return handoffMsg{err: err}
		}
		pending, err := h.Take(ctx)
		return handoffMsg{pending: pending, err: err}
	}
}

func (m Model) takeHandoff() tea.Cmd {
	h, ctx := m.deps.Handoff, m.ctx
	return func() tea.Msg {
		pending, err := h.Take(ctx)
		return handoffMsg{pending: pending, err: err}
	}
}

func (m Model) finishSession(rating int) tea.Cmd {
	runner, ctx := m.runner, m.ctx
	return func() tea.Msg {
		s, err := runner.Finish(ctx, rating)
		return sessionSavedMsg{session: s, err: err}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.screen == ScreenFocus && m.runner != nil {
			m.runner.Engine().Tick()
			if m.runner.Engine().State() == countdown.Completed {
				m.endSession()
			}
		}
		// Continue ticking; the wall re-derives statuses on render
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = min(max(msg.Width-12, 10), 60)
		return m, nil

	case wallLoadedMsg:
		m.loading = false
		if msg.err != nil {
			// both backends failed; the placeholder wall stays up
			logger.Warn("Wall load failed", logger.Err(msg.err))
			m.err = msg.err
			m.message = "Could not load commitments"
			return m, nil
		}
		m.err = nil
		// feed events and writes may have landed while the load was in flight
		m.wall.Merge(msg.res.Commitments)
		m.source = msg.res.Source
		m.clampCursor()
		return m, nil

	case feedMsg:
		if !msg.ok {
			m.events = nil
			return m, nil
		}
		if m.wall.Apply(msg.ev) {
			m.clampCursor()
		}
		return m, m.waitForFeed()

	case committedMsg:
		m.busy = false
		if msg.err != nil {
			m.message = errorText("Could not post", msg.err)
			return m, nil
		}
		m.wall.Prepend(msg.rec)
		m.cursor = 0
		m.screen = ScreenWall
		m.message = fmt.Sprintf("Committed: %s", msg.rec.Goal)
		if msg.rec.IsLocal() {
			m.message += " (saved on this device)"
		}
		if msg.focus {
			return m, m.queueFocus(model.PendingSession{
				Mode:     model.ModeDeepWork,
				Duration: msg.rec.DurationMinutes,
				Goal:     msg.rec.Goal,
			})
		}
		return m, nil

	case completedMsg:
		m.busy = false
		if msg.err != nil {
			m.message = errorText("Could not complete", msg.err)
			return m, nil
		}
		m.wall.Apply(store.ChangeEvent{Type: store.EventUpdate, Record: msg.rec})
		m.message = fmt.Sprintf("Completed: %s", msg.rec.Goal)
		return m, nil

	case handoffMsg:
		if errors.Is(msg.err, focus.ErrNoPendingSession) {
			return m.startFocusSetup()
		}
		if msg.err != nil {
			m.message = errorText("Could not start focus", msg.err)
			return m, nil
		}
		return m.startSession(msg.pending)

	case sessionSavedMsg:
		m.busy = false
		if msg.err != nil && !errors.Is(msg.err, focus.ErrAlreadySaved) {
			// stay on the rating screen so the save can be retried
			m.message = errorText("Could not save session", msg.err)
			return m, nil
		}
		m.runner = nil
		m.screen = ScreenWall
		m.message = fmt.Sprintf("Session saved: %d min", msg.session.ActualMinutes(time.Time{}))
		return m, nil

	case tea.KeyMsg:
		switch m.screen {
		case ScreenCommit:
			return m.updateCommit(msg)
		case ScreenFocusSetup:
			return m.updateFocusSetup(msg)
		case ScreenFocus:
			return m.updateFocus(msg)
		case ScreenRate:
			return m.updateRate(msg)
		case ScreenHelp:
			m.screen = m.prev
			return m, nil
		}
		return m.handleWallKeys(msg)
	}

	return m, nil
}

// handleWallKeys handles key presses on the wall
func (m Model) handleWallKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < m.wall.Len()-1 {
			m.cursor++
		}

	case msg.String() == "G":
		m.cursor = m.wall.Len() - 1
		m.clampCursor()

	case key.Matches(msg, keys.Commit):
		return m.startCommit()

	case key.Matches(msg, keys.Complete):
		return m.handleComplete()

	case key.Matches(msg, keys.Focus):
		return m, m.takeHandoff()

	case key.Matches(msg, keys.Refresh):
		m.loading = true
		m.message = ""
		return m, m.loadWall()

	case key.Matches(msg, keys.Help):
		m.prev = m.screen
		m.screen = ScreenHelp
	}

	return m, nil
}

func (m Model) handleComplete() (tea.Model, tea.Cmd) {
	c := m.selected()
	if c == nil || m.busy {
		return m, nil
	}
	if c.EffectiveStatus(m.deps.Clock.Now()) != model.StatusInProgress {
		m.message = "Only live commitments can be completed"
		return m, nil
	}
	m.busy = true
	return m, m.completeCommitment(c.ID)
}

func (m Model) startCommit() (tea.Model, tea.Cmd) {
	m.screen = ScreenCommit
	m.field = fieldAlias
	m.focusAfter = false
	m.message = ""
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
	if id, ok := m.identity(); ok {
		m.inputs[fieldAlias].SetValue(strings.ToUpper(id.DisplayName))
	}
	m.inputs[fieldDuration].SetValue(strconv.Itoa(defaultCommitMinutes))
	m.inputs[fieldAlias].Focus()
	return m, textinput.Blink
}

func (m Model) updateCommit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.screen = ScreenWall
		return m, nil

	case msg.String() == "ctrl+f":
		m.focusAfter = !m.focusAfter
		return m, nil

	case key.Matches(msg, keys.Tab), msg.String() == "down":
		return m.moveField(1)

	case msg.String() == "shift+tab", msg.String() == "up":
		return m.moveField(-1)

	case key.Matches(msg, keys.Enter):
		if m.busy {
			return m, nil
		}
		minutes, err := strconv.Atoi(strings.TrimSpace(m.inputs[fieldDuration].Value()))
		if err != nil {
			m.message = "Duration must be a number of minutes"
			return m, nil
		}
		req := model.NewCommitment{
			Alias:           strings.ToUpper(strings.TrimSpace(m.inputs[fieldAlias].Value())),
			Goal:            m.inputs[fieldGoal].Value(),
			DurationMinutes: minutes,
		}
		if err := req.Validate(); err != nil {
			m.message = err.Error()
			return m, nil
		}
		m.busy = true
		m.message = "Posting..."
		return m, m.createCommitment(req, m.focusAfter)
	}

	var cmd tea.Cmd
	m.inputs[m.field], cmd = m.inputs[m.field].Update(msg)
	return m, cmd
}

func (m Model) moveField(delta int) (tea.Model, tea.Cmd) {
	m.inputs[m.field].Blur()
	m.field = (m.field + delta + fieldCount) % fieldCount
	m.inputs[m.field].Focus()
	return m, textinput.Blink
}

// presetCount is the number of duration choices, the last being custom
func presetCount() int {
	return len(model.DurationPresets) + 1
}

func (m Model) customSelected() bool {
	return m.presetIdx == len(model.DurationPresets)
}

func (m Model) startFocusSetup() (tea.Model, tea.Cmd) {
	m.screen = ScreenFocusSetup
	m.message = ""
	m.goal.SetValue("")
	m.custom.SetValue("")
	m.custom.Blur()
	m.goal.Focus()
	return m, textinput.Blink
}

func (m Model) updateFocusSetup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.screen = ScreenWall
		return m, nil

	case msg.String() == "left":
		m.modeIdx = (m.modeIdx - 1 + len(model.Modes)) % len(model.Modes)
		return m, nil

	case msg.String() == "right":
		m.modeIdx = (m.modeIdx + 1) % len(model.Modes)
		return m, nil

	case key.Matches(msg, keys.Tab):
		m.presetIdx = (m.presetIdx + 1) % presetCount()
		if m.customSelected() {
			m.goal.Blur()
			m.custom.Focus()
		} else {
			m.custom.Blur()
			m.goal.Focus()
		}
		return m, textinput.Blink

	case msg.String() == "up", msg.String() == "down":
		if m.customSelected() {
			if m.goal.Focused() {
				m.goal.Blur()
				m.custom.Focus()
			} else {
				m.custom.Blur()
				m.goal.Focus()
			}
		}
		return m, nil

	case key.Matches(msg, keys.Enter):
		minutes := 0
		if m.customSelected() {
			n, err := strconv.Atoi(strings.TrimSpace(m.custom.Value()))
			if err != nil {
				m.message = fmt.Sprintf("Enter %d-%d minutes", model.MinSessionMinutes, model.MaxSessionMinutes)
				return m, nil
			}
			minutes = n
		} else {
			minutes = model.DurationPresets[m.presetIdx]
		}
		return m.startSession(model.PendingSession{
			Mode:     model.Modes[m.modeIdx],
			Duration: minutes,
			Goal:     m.goal.Value(),
		})
	}

	var cmd tea.Cmd
	if m.custom.Focused() {
		m.custom, cmd = m.custom.Update(msg)
	} else {
		m.goal, cmd = m.goal.Update(msg)
	}
	return m, cmd
}

// startSession builds a runner for p and starts the countdown
func (m Model) startSession(p model.PendingSession) (tea.Model, tea.Cmd) {
	var opts []focus.RunnerOption
	if id, ok := m.identity(); ok {
		opts = append(opts, focus.WithUser(id.ID))
	}
	runner, err := focus.NewRunner(p, m.deps.Coord, m.deps.Clock, opts...)
	if err != nil {
		m.message = err.Error()
		if m.screen != ScreenFocusSetup {
			return m.startFocusSetup()
		}
		return m, nil
	}

	runner.Start()
	m.runner = runner
	m.rating = 0
	m.screen = ScreenFocus
	m.message = ""
	logger.Info("Focus session started", logger.F("mode", p.Mode), logger.F("minutes", p.Duration))
	return m, nil
}

func (m Model) updateFocus(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit

	case key.Matches(msg, keys.Pause):
		e := m.runner.Engine()
		switch e.State() {
		case countdown.Running:
			m.runner.Pause()
		case countdown.Paused:
			m.runner.Start()
		}

	case key.Matches(msg, keys.End):
		m.endSession()
	}
	return m, nil
}

// endSession stops the countdown and moves to the rating screen
func (m *Model) endSession() {
	m.runner.Stop()
	m.screen = ScreenRate
}

func (m Model) updateRate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch s := msg.String(); s {
	case "1", "2", "3", "4", "5":
		m.rating = int(s[0] - '0')
		m.busy = true
		return m, m.finishSession(m.rating)
	case "0", "enter", "s":
		m.busy = true
		return m, m.finishSession(m.rating)
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func errorText(prefix string, err error) string {
	switch {
	case model.IsValidation(err):
		return fmt.Sprintf("%s: %v", prefix, err)
	case errors.Is(err, store.ErrNotFound):
		return prefix + ": not found"
	default:
		return fmt.Sprintf("%s: %v", prefix, err)
	}
}
