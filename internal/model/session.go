package model

import (
	"strings"
	"time"
)

// Mode is the kind of work done in a focus session
type Mode string

const (
	ModeStudy    Mode = "study"
	ModeBuild    Mode = "build"
	ModeContent  Mode = "content"
	ModeGym      Mode = "gym"
	ModeDeepWork Mode = "deep_work"
)

// Modes lists every mode in display order
var Modes = []Mode{ModeStudy, ModeBuild, ModeContent, ModeGym, ModeDeepWork}

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// Focus session duration bounds and presets, in minutes
const (
	MinSessionMinutes = 1
	MaxSessionMinutes = 480
)

// DurationPresets are the quick-pick session lengths
var DurationPresets = []int{25, 50, 90}

// Session records one finished focus run
type Session struct {
	ID              string     `json:"id"`
	UserID          *string    `json:"user_id"`
	Mode            Mode       `json:"mode"`
	Goal            string     `json:"goal"`
	DurationMinutes int        `json:"duration_minutes"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	FocusRating     *int       `json:"focus_rating"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsRunning reports whether the session has not ended
func (s *Session) IsRunning() bool {
	return s.EndedAt == nil
}

// ActualMinutes returns the whole minutes between start and end (or now when running)
func (s *Session) ActualMinutes(now time.Time) int {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	d := end.Sub(s.StartedAt)
	return int((d + 30*time.Second) / time.Minute)
}

// NewSession is a request to persist a finished session
type NewSession struct {
	UserID          *string   `json:"user_id,omitempty"`
	Mode            Mode      `json:"mode" validate:"required,oneof=study build content gym deep_work"`
	Goal            string    `json:"goal" validate:"required,max=500"`
	DurationMinutes int       `json:"duration_minutes" validate:"gt=0"`
	FocusRating     *int      `json:"focus_rating,omitempty" validate:"omitempty,min=1,max=5"`
	StartedAt       time.Time `json:"started_at" validate:"required"`
	EndedAt         time.Time `json:"ended_at" validate:"required,gtefield=StartedAt"`
}

// Validate normalizes and validates the request
func (r *NewSession) Validate() error {
	r.Goal = strings.TrimSpace(r.Goal)
	if r.FocusRating != nil && *r.FocusRating == 0 {
		r.FocusRating = nil
	}
	return validateStruct(r)
}

// Session builds the record to insert
func (r NewSession) Session() Session {
	ended := r.EndedAt
	return Session{
		UserID:          r.UserID,
		Mode:            r.Mode,
		Goal:            r.Goal,
		DurationMinutes: r.DurationMinutes,
		StartedAt:       r.StartedAt,
		EndedAt:         &ended,
		FocusRating:     r.FocusRating,
	}
}

// PendingSession is handed from the commitment flow to the focus flow
type PendingSession struct {
	Mode     Mode   `json:"mode" validate:"required,oneof=study build content gym deep_work"`
	Duration int    `json:"duration" validate:"min=1,max=480"`
	Goal     string `json:"goal" validate:"required"`
}

// Validate normalizes and validates the payload
func (p *PendingSession) Validate() error {
	p.Goal = strings.TrimSpace(p.Goal)
	return validateStruct(p)
}
