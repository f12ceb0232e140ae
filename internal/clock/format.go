package clock

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// MinutesToDuration converts whole minutes to a time.Duration
func MinutesToDuration(minutes int) time.Duration {
	return time.Duration(minutes) * time.Minute
}

// RoundMinutes rounds d to the nearest whole minute, half up
func RoundMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + 30*time.Second) / time.Minute)
}

// FormatDuration renders minutes as "45 min", "2h" or "1h 30m"
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	rest := minutes % 60
	if rest == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, rest)
}

// FormatTimer renders seconds as MM:SS
func FormatTimer(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// FormatRelative renders t relative to now, e.g. "5 minutes ago"
func FormatRelative(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

var modeLabels = map[string]string{
	"study":     "Study",
	"build":     "Build / Startup",
	"content":   "Content",
	"gym":       "Gym",
	"deep_work": "Deep Work",
}

// ModeLabel returns the display label for a session mode
func ModeLabel(mode string) string {
	if label, ok := modeLabels[mode]; ok {
		return label
	}
	return mode
}

// Initials returns up to two upper-case initials for name
func Initials(name string) string {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		r := []rune(parts[0])
		if len(r) > 2 {
			r = r[:2]
		}
		return strings.ToUpper(string(r))
	default:
		first := []rune(parts[0])[0]
		last := []rune(parts[len(parts)-1])[0]
		return strings.ToUpper(string([]rune{first, last}))
	}
}
