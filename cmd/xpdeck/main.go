// Xpdeck drives a Loupedeck Live as an X-Plane 12 cockpit panel.
//
// It loads a profile of pages, keys and gauges, connects to the panel and
// to the X-Plane web API, and keeps both in step: keys and knobs send
// simulator commands, gauges redraw as datarefs change.
//
// Usage:
//
//	xpdeck [command] [flags]
//
// Running without a command is the same as 'xpdeck run'.
// See 'xpdeck --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/xpdeck/xpdeck/internal/config"
	"github.com/xpdeck/xpdeck/internal/logging"
	"github.com/xpdeck/xpdeck/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// Global flags
var (
	settingsPath string
	logLevel     string
)

// settings is loaded once before any command runs.
var settings *config.Settings

var rootCmd = &cobra.Command{
	Use:   "xpdeck",
	Short: "Loupedeck Live control surface for X-Plane",
	Long: `Drives a Loupedeck Live as an X-Plane 12 cockpit panel.

Pages of touch keys, knobs and gauges are described in a YAML or TOML
profile. Keys and knobs send simulator commands; gauges follow datarefs
streamed from the X-Plane web API (X-Plane 12.1.1 or later, port 8086).

If no command is specified, 'run' is used.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runPanel,
	Args:              cobra.MaximumNArgs(1),
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&settingsPath, "config", "", "Settings file (default: <config dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(simCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads settings and starts logging. Flags win over the settings
// file and environment.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if settingsPath != "" {
		settings, err = config.LoadFrom(settingsPath)
	} else {
		settings, err = config.Load()
	}
	if err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = settings.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}
	atexit.Register(logging.Sync)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "xpdeck %s\n", version.Full())
	},
}
