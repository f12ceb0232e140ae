package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all key bindings
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Tab      key.Binding
	Enter    key.Binding
	Commit   key.Binding
	Complete key.Binding
	Focus    key.Binding
	Pause    key.Binding
	End      key.Binding
	Help     key.Binding
	Quit     key.Binding
	Escape   key.Binding
	Refresh  key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev")),
	Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Commit:   key.NewBinding(key.WithKeys("c", "a"), key.WithHelp("c", "commit")),
	Complete: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "complete")),
	Focus:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus")),
	Pause:    key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause/resume")),
	End:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end early")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Escape:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Refresh:  key.NewBinding(key.WithKeys("r", "R"), key.WithHelp("r", "reload")),
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Commit, k.Complete, k.Focus, k.Refresh, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Commit, k.Complete, k.Focus, k.Refresh},
		{k.Pause, k.End, k.Tab, k.Enter},
		{k.Escape, k.Help, k.Quit},
	}
}

// focusKeys is the reduced map shown while a session runs
type focusKeys struct{ keyMap }

func (k focusKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.End, k.Quit}
}
