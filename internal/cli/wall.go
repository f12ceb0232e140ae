package cli

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/existflow/lockin/internal/clock"
	"github.com/existflow/lockin/internal/coordinator"
	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/spf13/cobra"
)

var wallCmd = &cobra.Command{
	Use:     "wall",
	Aliases: []string{"ls"},
	Short:   "Show the commitment wall",
	Long: `Show the newest commitments with their live status.

Examples:
  lockin wall
  lockin wall --follow`,
	RunE: runWall,
}

var wallFollow bool

func init() {
	wallCmd.Flags().BoolVarP(&wallFollow, "follow", "F", false, "Keep running and print changes from other devices")
}

func runWall(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := a.Coord.Load(ctx)
	wall := coordinator.NewWall()
	if err != nil {
		// both backends failed: show the placeholder wall
		logger.Warn("Wall load failed", logger.Err(err))
		fmt.Printf("⚠️  Could not load commitments: %v\n", err)
	} else {
		wall.Replace(res.Commitments)
	}

	now := time.Now()
	printWall(wall.Display(now), wall.Placeholder(), res.Source, now)

	if !wallFollow {
		return nil
	}

	events, unwatch := a.Coord.Watch(ctx)
	defer unwatch()
	if events == nil {
		fmt.Println("Live updates unavailable. Showing the snapshot above.")
		return nil
	}

	fmt.Println("Following changes, Ctrl+C to stop.")
	// this loop owns the wall; events arrive over the channel only
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !wall.Apply(ev) {
				continue
			}
			verb := "+"
			if ev.Type == store.EventUpdate {
				verb = "~"
			}
			fmt.Printf("%s %s\n", verb, formatCommitment(ev.Record, time.Now()))
		}
	}
}

func printWall(items []model.Commitment, placeholder bool, source string, now time.Time) {
	title := "🧱 Commitment wall"
	if source != "" {
		title += fmt.Sprintf(" (%s)", source)
	}
	if placeholder {
		title += " - nobody has committed yet, be the first"
	}
	fmt.Printf("\n%s\n", title)
	fmt.Println(strings.Repeat("─", 72))

	for _, c := range items {
		fmt.Printf("  %s\n", formatCommitment(c, now))
	}
	fmt.Println()
}

// formatCommitment renders one wall line. Status is derived at now.
func formatCommitment(c model.Commitment, now time.Time) string {
	status := c.EffectiveStatus(now)

	icon := "[ ]"
	detail := fmt.Sprintf("%s left", clock.FormatDuration(int(c.Remaining(now).Round(time.Minute)/time.Minute)))
	switch status {
	case model.StatusCompleted:
		icon = "[x]"
		detail = "done"
	case model.StatusExpired:
		icon = "[-]"
		detail = "expired"
	}

	goal := c.Goal
	if len([]rune(goal)) > 36 {
		goal = string([]rune(goal)[:33]) + "..."
	}

	// Short ID
	shortID := c.ID
	if len(shortID) > 14 {
		shortID = shortID[:14]
	}

	return fmt.Sprintf("%s  %-14s  %-10s  %-36s  %-10s  %s",
		icon, shortID, c.Alias, goal, detail, clock.FormatRelative(c.CreatedAt, now))
}
