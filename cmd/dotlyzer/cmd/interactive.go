package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Yousha/dotlyzer/internal/tui"
)

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"menu"},
	Short:   "Start the interactive menu",
	Args:    cobra.NoArgs,
	RunE:    runInteractive,
}

func runInteractive(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	a.logger.Debug("starting interactive menu")
	return tui.RunMenu(cmd.Context(), a.agg, a.useColor)
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}
