package focus

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/existflow/lockin/internal/clock"
	"github.com/existflow/lockin/internal/countdown"
	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
)

// ErrAlreadySaved is returned when Finish is called twice
var ErrAlreadySaved = errors.New("session already saved")

// Saver persists finished sessions
type Saver interface {
	SaveSession(ctx context.Context, req model.NewSession) (model.Session, error)
}

// Runner owns one focus session: its countdown and its single save
type Runner struct {
	pending model.PendingSession
	saver   Saver
	clock   clock.Clock
	engine  *countdown.Engine
	userID  *string

	actual int // credited minutes once stopped
	saved  *model.Session
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithUser attributes the saved session to userID
func WithUser(userID string) RunnerOption {
	return func(r *Runner) {
		if userID != "" {
			r.userID = &userID
		}
	}
}

// NewRunner prepares an idle session for p
func NewRunner(p model.PendingSession, saver Saver, clk clock.Clock, opts ...RunnerOption) (*Runner, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.Real{}
	}
	r := &Runner{
		pending: p,
		saver:   saver,
		clock:   clk,
		engine:  countdown.New(p.Duration*60, clk),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Pending returns the session being run
func (r *Runner) Pending() model.PendingSession {
	return r.pending
}

// Engine returns the countdown driving the session
func (r *Runner) Engine() *countdown.Engine {
	return r.engine
}

// Start starts or resumes the countdown
func (r *Runner) Start() {
	r.engine.Start()
}

// Pause pauses the countdown
func (r *Runner) Pause() {
	r.engine.Pause()
}

// Stop ends the countdown if it is still going and returns the credited
// minutes, at least one
func (r *Runner) Stop() int {
	if r.actual > 0 {
		return r.actual
	}
	switch r.engine.State() {
	case countdown.Completed:
		r.actual = max(r.engine.ElapsedMinutes(), 1)
	default:
		r.actual = r.engine.End()
	}
	logger.Debug("Focus session stopped",
		logger.F("mode", r.pending.Mode),
		logger.F("target", r.pending.Duration),
		logger.F("actual", r.actual))
	return r.actual
}

// CompletionPercent returns credited minutes as a share of the target, capped at 100
func (r *Runner) CompletionPercent() int {
	pct := math.Round(float64(r.Stop()) / float64(r.pending.Duration) * 100)
	return int(math.Min(100, pct))
}

// Finish stops the session and persists it once. rating is 1-5, or 0 for
// unrated. started_at is back-dated from now by the credited minutes.
func (r *Runner) Finish(ctx context.Context, rating int) (model.Session, error) {
	if r.saved != nil {
		return *r.saved, ErrAlreadySaved
	}

	minutes := r.Stop()
	ended := r.clock.Now().UTC()
	req := model.NewSession{
		UserID:          r.userID,
		Mode:            r.pending.Mode,
		Goal:            r.pending.Goal,
		DurationMinutes: r.pending.Duration,
		FocusRating:     &rating,
		StartedAt:       ended.Add(-time.Duration(minutes) * time.Minute),
		EndedAt:         ended,
	}

	s, err := r.saver.SaveSession(ctx, req)
	if err != nil {
		return model.Session{}, err
	}
	r.saved = &s
	logger.Info("Focus session saved", logger.F("id", s.ID), logger.F("minutes", minutes))
	return s, nil
}

// Saved reports whether Finish succeeded
func (r *Runner) Saved() bool {
	return r.saved != nil
}
