package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_Validate(t *testing.T) {
	rating := 4
	req := NewSession{
		Mode:            ModeDeepWork,
		Goal:            " write tests ",
		DurationMinutes: 50,
		FocusRating:     &rating,
		StartedAt:       base,
		EndedAt:         base.Add(48 * time.Minute),
	}
	require.NoError(t, req.Validate())
	assert.Equal(t, "write tests", req.Goal)

	s := req.Session()
	require.NotNil(t, s.EndedAt)
	assert.False(t, s.IsRunning())
	assert.Equal(t, 48, s.ActualMinutes(time.Time{}))
}

func TestNewSession_ValidateRejects(t *testing.T) {
	bad := 6
	tests := []struct {
		name string
		mut  func(*NewSession)
	}{
		{"unknown mode", func(r *NewSession) { r.Mode = "nap" }},
		{"empty goal", func(r *NewSession) { r.Goal = "  " }},
		{"zero duration", func(r *NewSession) { r.DurationMinutes = 0 }},
		{"rating out of range", func(r *NewSession) { r.FocusRating = &bad }},
		{"ended before start", func(r *NewSession) { r.EndedAt = r.StartedAt.Add(-time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewSession{
				Mode:            ModeStudy,
				Goal:            "read",
				DurationMinutes: 25,
				StartedAt:       base,
				EndedAt:         base.Add(25 * time.Minute),
			}
			tt.mut(&req)
			assert.True(t, IsValidation(req.Validate()))
		})
	}
}

func TestNewSession_ZeroRatingMeansUnrated(t *testing.T) {
	zero := 0
	req := NewSession{Mode: ModeGym, Goal: "push day", DurationMinutes: 60, FocusRating: &zero, StartedAt: base, EndedAt: base}
	require.NoError(t, req.Validate())
	assert.Nil(t, req.FocusRating)
}

func TestPendingSession_Validate(t *testing.T) {
	p := PendingSession{Mode: ModeDeepWork, Duration: 60, Goal: " focus "}
	require.NoError(t, p.Validate())
	assert.Equal(t, "focus", p.Goal)

	tooLong := PendingSession{Mode: ModeDeepWork, Duration: MaxSessionMinutes + 1, Goal: "x"}
	assert.True(t, IsValidation(tooLong.Validate()))
}

func TestMode_Valid(t *testing.T) {
	for _, m := range Modes {
		assert.True(t, m.Valid())
	}
	assert.False(t, Mode("sleep").Valid())
}

func TestDisplayNameFromEmail(t *testing.T) {
	assert.Equal(t, "sam", DisplayNameFromEmail("sam@example.com"))
	assert.Equal(t, "User", DisplayNameFromEmail("@example.com"))
	assert.Contains(t, AvatarColors, RandomAvatarColor())
}
