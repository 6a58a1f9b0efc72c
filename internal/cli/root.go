// Package cli implements the tagbot command tree.
//
// The commands are offline operator tooling: they work against the blob
// store and recorded histories, never against the live chat platform.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tagbot CLI.
// defaultDB seeds the --db flag and defaultLevel the log level, both
// typically from the environment; --verbose overrides the level to debug.
func NewRootCommand(defaultDB string, defaultLevel slog.Level) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tagbot",
		Short: "Tag game tracker",
		Long:  "Operator tooling for the image tag game tracker: inspect persisted games, export the snapshot, and replay recorded histories.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			level := defaultLevel
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", defaultDB, "path to SQLite database")

	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewRecountCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
