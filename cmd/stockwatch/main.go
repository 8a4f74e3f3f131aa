package main

import (
	"fmt"
	"os"

	"stockwatch/internal/cli"
	"stockwatch/internal/config"
	"stockwatch/internal/logging"
)

func main() {
	// --config has to be read before cobra parses flags, because the config
	// feeds the command tree's dependencies.
	configDir := ""
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			configDir = os.Args[i+1]
		}
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
