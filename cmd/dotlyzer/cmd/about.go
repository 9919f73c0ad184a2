package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Yousha/dotlyzer/internal/tui"
)

var aboutCmd = &cobra.Command{
	Use:   "about",
	Short: "Describe dotlyzer and its features",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		useColor := tui.NewDetector().NoColor(noColor).ShouldUseColor()
		return tui.NewRenderer(cmd.OutOrStdout(), useColor).RenderAbout()
	},
}

func init() {
	rootCmd.AddCommand(aboutCmd)
}
