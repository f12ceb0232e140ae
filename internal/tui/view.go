package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/lockin/internal/clock"
	"github.com/existflow/lockin/internal/countdown"
	"github.com/existflow/lockin/internal/model"
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var mainContent string
	switch m.screen {
	case ScreenCommit:
		mainContent = m.place(m.renderCommitModal())
	case ScreenFocusSetup:
		mainContent = m.place(m.renderFocusSetup())
	case ScreenFocus:
		mainContent = m.place(m.renderFocus())
	case ScreenRate:
		mainContent = m.place(m.renderRate())
	case ScreenHelp:
		mainContent = m.place(m.help.FullHelpView(keys.FullHelp()) + "\n\n" + HelpStyle.Render("Press any key to close"))
	default:
		mainContent = m.renderWall()
	}

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, m.renderStatusBar())
}

func (m Model) place(modal string) string {
	return lipgloss.Place(
		m.width, m.height-2,
		lipgloss.Center, lipgloss.Center,
		modal,
		lipgloss.WithWhitespaceChars(" "),
	)
}

func (m Model) renderHeader() string {
	title := HeaderStyle.Render("LockIn")
	source := "this device"
	if m.source != "" && m.source != "local" {
		source = m.source
	}
	right := HelpStyle.Render(source)
	if id, ok := m.identity(); ok {
		right = avatar(id.DisplayName, id.AvatarColor) + " " + right
	}
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(right) - 4
	return title + repeat(" ", gap) + right
}

func (m Model) renderWall() string {
	width := m.width - 4
	now := m.deps.Clock.Now()
	var s string

	s += m.renderHeader() + "\n"
	s += lipgloss.NewStyle().Foreground(Border).Render(repeat("─", width)) + "\n\n"

	if m.loading && m.wall.Len() == 0 {
		s += HelpStyle.Render("  Loading the wall...")
		return WallStyle.Width(m.width).Height(m.height - 2).Render(s)
	}

	items := m.wall.Display(now)
	if m.wall.Placeholder() {
		s += HelpStyle.Render("  Nobody has committed yet. Press 'c' to be the first.") + "\n\n"
	}

	for i, c := range items {
		s += m.renderCard(i, c, width) + "\n"
	}

	return WallStyle.Width(m.width).Height(m.height - 2).Render(s)
}

func (m Model) renderCard(i int, c model.Commitment, width int) string {
	now := m.deps.Clock.Now()
	status := c.EffectiveStatus(now)

	cursor := "  "
	style := CardStyle
	if i == m.cursor && !m.wall.Placeholder() {
		cursor = "❯ "
		style = CardSelectedStyle
	}
	if status != model.StatusInProgress {
		style = CardDoneStyle
	}

	left := "done"
	if status == model.StatusInProgress {
		left = clock.FormatTimer(int(c.Remaining(now).Seconds())) + " left"
	} else if status == model.StatusExpired {
		left = "time's up"
	}

	goalWidth := max(width-52, 10)
	line := fmt.Sprintf("%s%-10s %-*s %-12s %-16s",
		cursor, truncate(c.Alias, 10), goalWidth, truncate(c.Goal, goalWidth),
		left, clock.FormatRelative(c.CreatedAt, now))

	return style.Render(line) + " " + FormatStatus(status)
}

func (m Model) renderStatusBar() string {
	text := m.help.View(keys)
	switch {
	case m.screen == ScreenFocus:
		text = m.help.View(focusKeys{keys})
	case m.message != "":
		text = m.message
	}
	if m.err != nil && m.screen == ScreenWall {
		text = ErrorStyle.Render(text)
	}
	if m.events != nil {
		live := lipgloss.NewStyle().Foreground(Completed).Render("● live")
		avail := m.width - lipgloss.Width(text) - lipgloss.Width(live) - 4
		text += repeat(" ", avail) + live
	}
	return StatusBarStyle.Width(m.width).Render(text)
}

func (m Model) renderCommitModal() string {
	labels := []string{"Alias", "Goal", "Minutes"}

	content := lipgloss.NewStyle().Bold(true).Render("Post a commitment") + "\n\n"
	for i, in := range m.inputs {
		content += HelpStyle.Render(labels[i]) + "\n" + in.View() + "\n\n"
	}

	check := "[ ]"
	if m.focusAfter {
		check = "[x]"
	}
	content += fmt.Sprintf("%s Start a deep work session now (ctrl+f)\n\n", check)
	content += HelpStyle.Render("Tab:next field  Enter:post  Esc:cancel")

	return ModalStyle.Render(content)
}

func (m Model) renderFocusSetup() string {
	content := lipgloss.NewStyle().Bold(true).Render("Start a focus session") + "\n\n"

	var modes []string
	for i, mode := range model.Modes {
		label := clock.ModeLabel(string(mode))
		if i == m.modeIdx {
			label = lipgloss.NewStyle().Bold(true).Foreground(Primary).Render("[" + label + "]")
		} else {
			label = HelpStyle.Render(" " + label + " ")
		}
		modes = append(modes, label)
	}
	content += strings.Join(modes, " ") + "\n\n"

	var presets []string
	for i, p := range model.DurationPresets {
		label := clock.FormatDuration(p)
		if i == m.presetIdx {
			label = lipgloss.NewStyle().Bold(true).Foreground(Primary).Render("[" + label + "]")
		}
		presets = append(presets, label)
	}
	custom := "custom"
	if m.customSelected() {
		custom = lipgloss.NewStyle().Bold(true).Foreground(Primary).Render("[custom]")
	}
	content += strings.Join(append(presets, custom), "  ") + "\n"
	if m.customSelected() {
		content += m.custom.View() + "\n"
	}

	content += "\n" + HelpStyle.Render("Goal") + "\n" + m.goal.View() + "\n\n"
	content += HelpStyle.Render("←/→:mode  Tab:duration  Enter:start  Esc:cancel")

	return ModalStyle.Render(content)
}

func (m Model) renderFocus() string {
	e := m.runner.Engine()
	p := m.runner.Pending()

	header := lipgloss.NewStyle().Bold(true).Foreground(Primary).Render(clock.ModeLabel(string(p.Mode)))
	content := header + "  " + HelpStyle.Render(clock.FormatDuration(p.Duration)) + "\n"
	content += truncate(p.Goal, 50) + "\n"
	content += TimerStyle.Render(clock.FormatTimer(e.SecondsRemaining())) + "\n"
	content += m.progress.ViewAs(e.Progress()) + "\n\n"

	state := "Stay locked in."
	if e.State() == countdown.Paused {
		state = lipgloss.NewStyle().Foreground(Warning).Render("Paused")
	}
	content += HelpStyle.Render(state)

	return ModalStyle.Render(content)
}

func (m Model) renderRate() string {
	minutes := m.runner.Stop()
	content := lipgloss.NewStyle().Bold(true).Foreground(Completed).Render("Session complete") + "\n\n"
	content += fmt.Sprintf("%s focused, %d%% of your target\n\n", clock.FormatDuration(minutes), m.runner.CompletionPercent())
	content += "How was your focus?  1 2 3 4 5\n\n"
	if m.busy {
		content += HelpStyle.Render("Saving...")
	} else {
		content += HelpStyle.Render("1-5:rate and save  Enter:save without rating")
	}
	return ModalStyle.Render(content)
}
