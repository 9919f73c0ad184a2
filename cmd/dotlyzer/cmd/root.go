package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/tui"
)

var (
	cfgFile      string
	logLevel     string
	logFormat    string
	outputFormat string
	outFile      string
	noColor      bool

	// Version info - set via SetVersion()
	appVersion = core.AppVersion
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "dotlyzer",
	Short: core.AppDescription,
	Long: `dotlyzer inspects live processes: identity, memory, threads, loaded
modules, CPU usage and permissions, and writes process dumps.

Running 'dotlyzer' without arguments on a terminal starts the interactive menu.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runRoot,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion records build information. An empty version keeps the
// built-in one.
func SetVersion(version, commit, date string) {
	if version != "" {
		appVersion = version
	}
	appCommit = commit
	appDate = date
}

// GetVersion returns the application version string.
func GetVersion() string {
	return appVersion
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./.dotlyzer.yaml, then ~/.config/dotlyzer/.dotlyzer.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text",
		"report format (text, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&outFile, "out", "",
		"write the report to this file instead of stdout")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
}

func runRoot(cmd *cobra.Command, _ []string) error {
	if !tui.NewDetector().Interactive() {
		return cmd.Help()
	}
	return runInteractive(cmd, nil)
}
