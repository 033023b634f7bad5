package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	stateFile  string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "gallery-watch",
	Short: "Watch gallery search pages for newly appeared entries",
	Long: `A single-pass watcher that polls gallery search pages for configured
authors, diffs the results against the previous run's snapshot, and reports
new entries via Telegram. One invocation is one pass; run it from a scheduler.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configFile)
		if err != nil {
			log.Fatalf("Configuration error: %v", err)
		}

		if stateFile != "" {
			cfg.StateFile = stateFile
		}

		// Set debug mode globally
		if debugMode {
			SetDebugMode(true)
		}

		watcher := NewWatcher(cfg)
		if err := watcher.Run(); err != nil {
			log.Fatalf("Watch pass failed: %v", err)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "config.toml", "Path to the configuration file (.toml, .yaml)")
	rootCmd.Flags().StringVar(&stateFile, "state", "", "Path to the state file (overrides config)")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
