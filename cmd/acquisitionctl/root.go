package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmunix/arrgo/internal/app"
	"github.com/vmunix/arrgo/internal/config"
)

var version = "dev"

var (
	configPath string
	jsonOutput bool
)

// rootCmd is the acquisitionctl entrypoint. The daemon exposes no control
// API, so every subcommand opens the same database app.Build wires for
// the daemon directly and drives internal/scheduler in-process.
var rootCmd = &cobra.Command{
	Use:   "acquisitionctl",
	Short: "Control CLI for the acquisitiond task scheduler",
	Long: `acquisitionctl - inspect and control acquisitiond's Task Scheduler

Operates directly on the same SQLite database acquisitiond uses (safe to
run alongside a live daemon; SQLite serializes the writes). Use it to
list scheduled tasks, change their interval/enabled state, or trigger one
immediately.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("acquisitionctl {{.Version}}\n")

	rootCmd.AddCommand(tasksCmd)
}

// buildApp loads config and wires the component graph, the same one
// acquisitiond runs, without starting the scheduler's tickers.
func buildApp() (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return app.Build(cfg, app.NewLogger(cfg))
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
