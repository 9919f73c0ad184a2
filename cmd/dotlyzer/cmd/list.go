package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Yousha/dotlyzer/internal/inspect"
)

var listFilter string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List processes and flag managed runtimes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		report, err := a.agg.ListProcesses(cmd.Context())
		if err != nil {
			return err
		}
		if listFilter != "" {
			report.Listing.Entries = inspect.Filter(report.Listing.Entries, listFilter)
		}
		return a.emit(cmd, report)
	},
}

func init() {
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "",
		"fuzzy match on process name, or an exact pid")
	rootCmd.AddCommand(listCmd)
}
