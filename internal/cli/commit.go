package cli

import (
	"fmt"
	"strings"

	"github.com/existflow/lockin/internal/clock"
	"github.com/existflow/lockin/internal/model"
	"github.com/spf13/cobra"
)

var commitCmd = &cobra.Command{
	Use:   "commit [goal]",
	Short: "Post a commitment to the wall",
	Long: `Post a time-boxed commitment to the wall.

Examples:
  lockin commit "Finish the landing page" --alias alex
  lockin commit "Read chapter 4" -a kim -d 45
  lockin commit "Ship v2" -a sam --focus`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommit,
}

var (
	commitAlias    string
	commitDuration int
	commitFocus    bool
)

// defaultCommitMinutes is the wall form's preselected duration
const defaultCommitMinutes = 60

func init() {
	commitCmd.Flags().StringVarP(&commitAlias, "alias", "a", "", "Name shown on the wall (required)")
	commitCmd.Flags().IntVarP(&commitDuration, "duration", "d", defaultCommitMinutes, "Duration in minutes")
	commitCmd.Flags().BoolVarP(&commitFocus, "focus", "f", false, "Queue a deep work session for 'lockin focus'")
	_ = commitCmd.MarkFlagRequired("alias")
}

// commitRequest builds the wall form payload; the alias is upper-cased
func commitRequest(alias string, goalWords []string, minutes int) model.NewCommitment {
	return model.NewCommitment{
		Alias:           strings.ToUpper(strings.TrimSpace(alias)),
		Goal:            strings.Join(goalWords, " "),
		DurationMinutes: minutes,
	}
}

func runCommit(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	ctx := cmd.Context()
	rec, err := a.Coord.CreateCommitment(ctx, commitRequest(commitAlias, args, commitDuration))
	if err != nil {
		return fmt.Errorf("failed to post commitment: %w", err)
	}

	where := "wall"
	if rec.IsLocal() {
		where = "this device"
	}
	fmt.Printf("✓ %s committed to \"%s\" for %s (saved to %s)\n",
		rec.Alias, rec.Goal, clock.FormatDuration(rec.DurationMinutes), where)
	fmt.Printf("  id: %s\n", rec.ID)

	if commitFocus {
		pending := model.PendingSession{Mode: model.ModeDeepWork, Duration: rec.DurationMinutes, Goal: rec.Goal}
		if err := a.Handoff.Put(ctx, pending); err != nil {
			return fmt.Errorf("failed to queue focus session: %w", err)
		}
		fmt.Println("  Focus session queued. Start it with: lockin focus")
	}

	return nil
}
