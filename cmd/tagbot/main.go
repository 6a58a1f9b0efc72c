package main

import (
	"fmt"
	"os"

	"github.com/tremby/discord-tagbot/internal/cli"
	"github.com/tremby/discord-tagbot/internal/config"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	cmd := cli.NewRootCommand(cfg.DatabasePath, cfg.SlogLevel())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
