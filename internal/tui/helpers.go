package tui

import (
	"strings"

	"github.com/existflow/lockin/internal/clock"
)

// truncate shortens a string to max runes with ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if max < 4 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// repeat creates a string by repeating s n times
func repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(s, n)
}

func initialsOf(name string) string {
	if in := clock.Initials(name); in != "" {
		return in
	}
	return "?"
}
