package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xpdeck/xpdeck/internal/config"
	"github.com/xpdeck/xpdeck/internal/ui"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the settings file",
	Long: `Settings are read from <config dir>/config.yaml, then .env and
XPDECK_* environment variables, then command line flags.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal settings: %w", err)
		}
		path, err := settingsFile()
		if err != nil {
			return err
		}
		ui.PrintCommandHeader(cmd.OutOrStdout(), "Settings", "xpdeck config show",
			ui.Param{Key: "File", Value: path},
		)
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a settings file with default values",
	Example: `  xpdeck config init
  xpdeck --config ./xpdeck.yaml config init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		path, err := settingsFile()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			ui.PrintWarning(out, "Settings file already exists",
				ui.Param{Key: "File", Value: path},
				ui.Param{Key: "Overwrite", Value: "use --force"},
			)
			return nil
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		if settingsPath != "" {
			err = config.NewSettings().SaveTo(path)
		} else {
			err = config.NewSettings().Save()
		}
		if err != nil {
			ui.PrintFailure(out, "Cannot write settings", err, []string{
				"Check that the config directory is writable",
				"Use --config to write somewhere else",
			})
			return err
		}
		ui.PrintSuccess(out, "Settings written", ui.Param{Key: "File", Value: path})
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// settingsFile returns the file --config names, or the default location.
func settingsFile() (string, error) {
	if settingsPath != "" {
		return settingsPath, nil
	}
	return config.GetConfigPath()
}
