package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Yousha/dotlyzer/internal/config"
	"github.com/Yousha/dotlyzer/internal/export"
)

var (
	configForce bool
	configUser  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage dotlyzer configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .dotlyzer.yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := config.ProjectConfigName
		if configUser {
			p, err := config.UserConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := export.WriteFile(path, []byte(config.DefaultConfigYAML)); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		abs, _ := filepath.Abs(path)
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", abs)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		if used := a.loader.ConfigFile(); used != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", used)
		}
		return export.Encode(cmd.OutOrStdout(), export.FormatYAML, a.loader.AllSettings())
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configInitCmd.Flags().BoolVar(&configUser, "user", false, "write to the user config directory")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
