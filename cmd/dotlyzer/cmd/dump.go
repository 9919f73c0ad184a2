package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Yousha/dotlyzer/internal/dump"
)

var dumpMode string

var dumpCmd = &cobra.Command{
	Use:   "dump <pid>",
	Short: "Write a process dump to the dump directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := parsePID(args[0])
		if err != nil {
			return err
		}
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		mode, known := parseDumpMode(dumpMode)
		if !known {
			a.logger.Warn("unknown dump mode, using normal", "mode", dumpMode)
		}
		report, err := a.agg.CreateDump(cmd.Context(), pid, mode)
		if err != nil {
			return err
		}
		if err := a.emit(cmd, report); err != nil {
			return err
		}
		if !report.Dump.Succeeded {
			return fmt.Errorf("dump failed: %s", report.Error)
		}
		return nil
	},
}

// parseDumpMode falls back to normal for anything but "full"; known reports
// whether s named a mode.
func parseDumpMode(s string) (mode dump.Mode, known bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "full":
		known = true
	}
	return dump.ParseMode(s), known
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpMode, "mode", "m", "normal", "dump mode (normal, full)")
	rootCmd.AddCommand(dumpCmd)
}
