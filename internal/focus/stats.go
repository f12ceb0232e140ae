package focus

import (
	"sort"
	"time"

	"github.com/existflow/lockin/internal/model"
)

// Stats summarises a user's session history
type Stats struct {
	TotalSessions int `json:"total_sessions"`
	TotalMinutes  int `json:"total_minutes"`
	CurrentStreak int `json:"current_streak"` // consecutive days
}

// ComputeStats summarises sessions as of now. Days are calendar days in
// now's location. A streak counts back from the most recent session day and
// is zero unless that day is today or yesterday.
func ComputeStats(sessions []model.Session, now time.Time) Stats {
	st := Stats{TotalSessions: len(sessions)}

	seen := make(map[time.Time]bool)
	var days []time.Time
	for i := range sessions {
		st.TotalMinutes += sessions[i].ActualMinutes(now)
		d := day(sessions[i].StartedAt.In(now.Location()))
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return st
	}

	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	today := day(now)
	if !days[0].Equal(today) && !days[0].Equal(today.AddDate(0, 0, -1)) {
		return st
	}

	st.CurrentStreak = 1
	for i := 1; i < len(days); i++ {
		if !days[i].Equal(days[i-1].AddDate(0, 0, -1)) {
			break
		}
		st.CurrentStreak++
	}
	return st
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
