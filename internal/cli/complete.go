package cli

import (
	"errors"
	"fmt"

	"github.com/existflow/lockin/internal/store"
	"github.com/spf13/cobra"
)

var completeCmd = &cobra.Command{
	Use:     "complete [commitment-id]",
	Aliases: []string{"done"},
	Short:   "Mark a commitment as completed",
	Long: `Mark a commitment as completed. Completion is final.

Examples:
  lockin complete 3f0c9a1e-8d2b-4c55-a7e1-5b9f7f1d2c11
  lockin complete local-0f8fad5b-d9cb-469f-a165-70867728950e`,
	Args: cobra.ExactArgs(1),
	RunE: runComplete,
}

func runComplete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	rec, err := a.Coord.CompleteCommitment(cmd.Context(), args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("commitment not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to complete commitment: %w", err)
	}

	fmt.Printf("✓ Completed: %s \"%s\"\n", rec.Alias, rec.Goal)
	return nil
}
