package coordinator

import (
	"strconv"
	"strings"
	"time"

	"github.com/existflow/lockin/internal/model"
)

// PlaceholderIDPrefix marks display-only entries
const PlaceholderIDPrefix = "seed-"

type placeholder struct {
	alias    string
	goal     string
	duration int
	status   model.Status
	age      time.Duration
}

var placeholders = []placeholder{
	{"Alex Chen", "Complete React tutorial and build first component", 50, model.StatusInProgress, 15 * time.Minute},
	{"Jordan K", "Write blog post about productivity systems", 90, model.StatusCompleted, 2 * time.Hour},
	{"Sam W", "Gym: Push day - chest, shoulders, triceps", 60, model.StatusInProgress, 30 * time.Minute},
	{"Taylor M", "Study for AWS certification exam", 25, model.StatusCompleted, 45 * time.Minute},
	{"Riley P", "Edit 3 TikTok videos for client", 50, model.StatusInProgress, 5 * time.Minute},
}

// Placeholders returns the example entries shown on an empty wall, aged
// relative to now. They are never persisted.
func Placeholders(now time.Time) []model.Commitment {
	out := make([]model.Commitment, len(placeholders))
	for i, p := range placeholders {
		out[i] = model.Commitment{
			ID:              PlaceholderIDPrefix + strconv.Itoa(i+1),
			Alias:           p.alias,
			Goal:            p.goal,
			DurationMinutes: p.duration,
			Status:          p.status,
			CreatedAt:       now.Add(-p.age),
		}
	}
	return out
}

// IsPlaceholder reports whether c is a display-only entry
func IsPlaceholder(c model.Commitment) bool {
	return strings.HasPrefix(c.ID, PlaceholderIDPrefix)
}
