package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/existflow/lockin/internal/clock"
	"github.com/existflow/lockin/internal/focus"
	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Run a focus session",
	Long: `Run a focus session in the terminal. Without flags the session queued
by 'lockin commit --focus' is started; with nothing queued you are asked
for a goal, mode and length.

Modes: study, build, content, gym, deep_work
Presets: 25, 50 and 90 minutes; any length from 1 to 480 is accepted.

Examples:
  lockin focus
  lockin focus --mode study --duration 50 --goal "Linear algebra"
  lockin focus -m gym -d 90 -g "Leg day" --rating 4`,
	RunE: runFocus,
}

var (
	focusMode     string
	focusDuration int
	focusGoal     string
	focusRating   int
)

func init() {
	focusCmd.Flags().StringVarP(&focusMode, "mode", "m", string(model.ModeDeepWork), "Session mode")
	focusCmd.Flags().IntVarP(&focusDuration, "duration", "d", model.DurationPresets[0], "Target length in minutes")
	focusCmd.Flags().StringVarP(&focusGoal, "goal", "g", "", "What you will work on")
	focusCmd.Flags().IntVarP(&focusRating, "rating", "r", -1, "Focus rating 1-5, 0 for none (skips the prompt)")
}

// pendingFromFlags resolves the session to run: explicit flags win,
// otherwise the queued handoff is consumed. With nothing queued an
// interactive terminal falls through to the setup prompt.
func pendingFromFlags(ctx context.Context, cmd *cobra.Command, h focus.Handoff, in io.Reader, interactive bool) (model.PendingSession, error) {
	if cmd.Flags().Changed("goal") {
		p := model.PendingSession{Mode: model.Mode(focusMode), Duration: focusDuration, Goal: focusGoal}
		err := p.Validate()
		return p, err
	}

	p, err := h.Take(ctx)
	if errors.Is(err, focus.ErrNoPendingSession) {
		if !interactive {
			return model.PendingSession{}, errors.New("no queued session: pass --goal, or post one with 'lockin commit --focus'")
		}
		return promptSetup(in, model.Mode(focusMode), focusDuration)
	}
	return p, err
}

// promptSetup asks for goal, mode and length. Empty answers keep the defaults.
func promptSetup(in io.Reader, mode model.Mode, duration int) (model.PendingSession, error) {
	reader := bufio.NewReader(in)
	fmt.Println("No session queued. Set one up:")

	p := model.PendingSession{Mode: mode, Duration: duration}
	p.Goal = prompt(reader, "Goal: ")

	names := make([]string, len(model.Modes))
	for i, m := range model.Modes {
		names[i] = string(m)
	}
	if v := prompt(reader, fmt.Sprintf("Mode (%s) [%s]: ", strings.Join(names, ", "), mode)); v != "" {
		p.Mode = model.Mode(strings.ToLower(v))
	}
	if v := prompt(reader, fmt.Sprintf("Minutes [%d]: ", duration)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return model.PendingSession{}, fmt.Errorf("invalid duration %q", v)
		}
		p.Duration = n
	}

	if err := p.Validate(); err != nil {
		return model.PendingSession{}, err
	}
	return p, nil
}

func runFocus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	pending, err := pendingFromFlags(cmd.Context(), cmd, a.Handoff, os.Stdin, interactive)
	if err != nil {
		return err
	}

	var opts []focus.RunnerOption
	if id, ok := a.Identity(cmd.Context()); ok {
		opts = append(opts, focus.WithUser(id.ID))
	}
	runner, err := focus.NewRunner(pending, a.Coord, clock.Real{}, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("🎯 %s: %s (%s)\n", clock.ModeLabel(string(pending.Mode)), pending.Goal, clock.FormatDuration(pending.Duration))
	fmt.Println("   Ctrl+C ends the session early.")

	runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	engine := runner.Engine()
	engine.OnTick(func(remaining int) {
		fmt.Printf("\r   ⏱  %s ", clock.FormatTimer(remaining))
	})
	runner.Start()
	_ = engine.Run(runCtx, 250*time.Millisecond)
	stop()
	fmt.Println()

	minutes := runner.Stop()
	fmt.Printf("✓ %s focused (%d%% of target)\n", clock.FormatDuration(minutes), runner.CompletionPercent())

	rating := focusRating
	if rating < 0 {
		rating = promptRating(os.Stdin)
	}

	// the signal context may be cancelled already; saving still has to happen
	session, err := runner.Finish(context.WithoutCancel(cmd.Context()), rating)
	if err != nil {
		logger.Error("Failed to save focus session", logger.Err(err))
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Printf("💾 Session saved (%s)\n", session.ID)
	return nil
}

// promptRating asks for a 1-5 rating; anything else means unrated
func promptRating(in io.Reader) int {
	fmt.Print("Rate your focus 1-5 (enter to skip): ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	return parseRating(line)
}

func parseRating(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 5 {
		return 0
	}
	return n
}
