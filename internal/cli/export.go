package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tremby/discord-tagbot/internal/store"
)

// NewExportCommand creates the export command: dump the raw snapshot blob.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Dump the raw snapshot JSON",
		Long:  "Print the persisted snapshot blob exactly as stored, for backup or inspection.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.Database); err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("database %s", opts.Database), err)
			}

			st, err := store.Open(opts.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "open database", err)
			}
			defer st.Close()

			raw, ok, err := st.Get(cmd.Context(), store.SnapshotKey)
			if err != nil {
				return WrapExitError(ExitFailure, "read snapshot", err)
			}
			if !ok {
				return NewExitError(ExitFailure, "no snapshot stored")
			}

			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
}
