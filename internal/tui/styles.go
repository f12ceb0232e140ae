package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/lockin/internal/model"
)

// Color palette based on TUI design
var (
	// Status colors
	InProgress = lipgloss.Color("#4ECDC4") // Teal
	Completed  = lipgloss.Color("#95E1A3") // Green
	Expired    = lipgloss.Color("#6C757D") // Gray
	Warning    = lipgloss.Color("#FFE66D") // Yellow
	Failure    = lipgloss.Color("#FF6B6B") // Red

	// UI colors
	Primary   = lipgloss.Color("#22C55E")
	Secondary = lipgloss.Color("#6C757D")
	Surface   = lipgloss.Color("#16213e")
	Text      = lipgloss.Color("#FFFFFF")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
)

// Styles
var (
	// Header
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1)

	// Wall list
	WallStyle = lipgloss.NewStyle().
			Padding(1, 2)

	// Commitment card
	CardStyle = lipgloss.NewStyle().
			Padding(0, 1)

	CardSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	CardDoneStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Strikethrough(true).
			Padding(0, 1)

	// Avatar initials
	AvatarStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Text).
			Background(Primary).
			Padding(0, 1)

	// Timer
	TimerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(1, 0)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	// Input modal
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	// Help text
	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)

	// Error text
	ErrorStyle = lipgloss.NewStyle().
			Foreground(Failure)
)

// statusStyle returns the badge style for a derived status
func statusStyle(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusCompleted:
		return lipgloss.NewStyle().Foreground(Completed).Bold(true)
	case model.StatusExpired:
		return lipgloss.NewStyle().Foreground(Expired)
	default:
		return lipgloss.NewStyle().Foreground(InProgress)
	}
}

// FormatStatus returns a rendered status badge
func FormatStatus(s model.Status) string {
	style := statusStyle(s)
	switch s {
	case model.StatusCompleted:
		return style.Render("✓ done")
	case model.StatusExpired:
		return style.Render("expired")
	default:
		return style.Render("● live")
	}
}

// avatar renders initials on the user's color
func avatar(name, color string) string {
	if color == "" {
		color = model.DefaultAvatarColor
	}
	return AvatarStyle.Background(lipgloss.Color(color)).Render(initialsOf(name))
}
