package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tremby/discord-tagbot/internal/game"
	"github.com/tremby/discord-tagbot/internal/harness"
)

// NewRecountCommand creates the recount command: replay a recorded history
// offline and print the derived state.
func NewRecountCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recount <scenario.yaml>",
		Short: "Replay a recorded history",
		Long:  "Load a YAML scenario file, replay its history through the recount engine, and print the derived game state.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s", path), err)
			}

			result, err := harness.RunFile(path)
			if err != nil {
				return WrapExitError(ExitFailure, "replay scenario", err)
			}

			if opts.Format == "json" {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(result); err != nil {
					return WrapExitError(ExitFailure, "encode result", err)
				}
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", result.Scenario, result.Status)
			for _, line := range scoreLines(result.Scores) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if len(result.Excluded) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "disqualified: %s\n", strings.Join(result.Excluded, ", "))
			}
			return nil
		},
	}
}

func scoreLines(scores map[string]int) []string {
	ranked := game.Scores(scores)
	lines := make([]string, 0, len(ranked))
	for _, id := range ranked.Ranked() {
		lines = append(lines, fmt.Sprintf("  %s: %d", id, ranked[id]))
	}
	return lines
}
