package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tremby/discord-tagbot/internal/store"
)

// NewStatusCommand creates the status command: summarize persisted games.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize persisted games",
		Long:  "Read the snapshot from the database and print one summary line per game.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readSnapshot(cmd, opts)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(doc); err != nil {
					return WrapExitError(ExitFailure, "encode snapshot", err)
				}
				return nil
			}

			if len(doc.Games) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no games")
				return nil
			}
			for _, rec := range doc.Games {
				fmt.Fprintln(cmd.OutOrStdout(), summarize(rec))
			}
			return nil
		},
	}
}

func summarize(rec store.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s", rec.ChannelID, rec.Status)
	if rec.Config.NextTagTimeLimit != nil {
		fmt.Fprintf(&b, "\tlimit=%dm", *rec.Config.NextTagTimeLimit)
	}
	if len(rec.Disqualified) > 0 {
		fmt.Fprintf(&b, "\tdisqualified=%s", strings.Join(rec.Disqualified, ","))
	}
	return b.String()
}

// readSnapshot opens the database and parses the persisted document.
// A missing database file is a command error; a missing or corrupt
// snapshot inside an existing database is an operation failure.
func readSnapshot(cmd *cobra.Command, opts *RootOptions) (store.Document, error) {
	if _, err := os.Stat(opts.Database); err != nil {
		return store.Document{}, WrapExitError(ExitCommandError, fmt.Sprintf("database %s", opts.Database), err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return store.Document{}, WrapExitError(ExitCommandError, "open database", err)
	}
	defer st.Close()

	raw, ok, err := st.Get(cmd.Context(), store.SnapshotKey)
	if err != nil {
		return store.Document{}, WrapExitError(ExitFailure, "read snapshot", err)
	}
	if !ok {
		return store.Document{}, nil
	}

	doc, err := store.ParseDocument([]byte(raw))
	if err != nil {
		return store.Document{}, WrapExitError(ExitFailure, "parse snapshot", err)
	}
	return doc, nil
}
