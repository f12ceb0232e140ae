package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/lockin/internal/clock"
	"github.com/existflow/lockin/internal/focus"
	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Show your focus session history",
	RunE:  runSessions,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show totals and your current streak",
	RunE:  runStats,
}

var sessionsLimit int

// statsWindow is how many sessions stats are computed over, the server's
// largest page
const statsWindow = 200

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "Number of sessions to show")
}

var errSignedOut = errors.New("not signed in: run 'lockin auth login' first")

func loadSessions(cmd *cobra.Command, a *App, limit int) ([]model.Session, error) {
	id, ok := a.Identity(cmd.Context())
	if !ok {
		return nil, errSignedOut
	}
	sessions, err := a.Coord.ListSessions(cmd.Context(), id.ID, limit)
	if errors.Is(err, store.ErrUnauthorized) {
		return nil, errSignedOut
	}
	return sessions, err
}

func runSessions(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	sessions, err := loadSessions(cmd, a, sessionsLimit)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions yet. Start one with: lockin focus --goal \"...\"")
		return nil
	}

	now := time.Now()
	fmt.Printf("\n📒 Sessions (%d)\n", len(sessions))
	fmt.Println(strings.Repeat("─", 72))
	for _, s := range sessions {
		fmt.Printf("  %s\n", formatSession(s, now))
	}
	fmt.Println()
	return nil
}

func formatSession(s model.Session, now time.Time) string {
	rating := "  -  "
	if s.FocusRating != nil {
		rating = strings.Repeat("★", *s.FocusRating) + strings.Repeat("·", 5-*s.FocusRating)
	}
	return fmt.Sprintf("%-16s  %-30s  %-8s  %s  %s",
		clock.ModeLabel(string(s.Mode)), s.Goal,
		clock.FormatDuration(s.ActualMinutes(now)), rating,
		clock.FormatRelative(s.StartedAt, now))
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	sessions, err := loadSessions(cmd, a, statsWindow)
	if err != nil {
		return err
	}

	st := focus.ComputeStats(sessions, time.Now())
	fmt.Printf("Sessions:       %d\n", st.TotalSessions)
	fmt.Printf("Focused:        %s\n", clock.FormatDuration(st.TotalMinutes))
	fmt.Printf("Current streak: %d day(s)\n", st.CurrentStreak)
	return nil
}
