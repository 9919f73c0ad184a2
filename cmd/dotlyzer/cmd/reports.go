package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Yousha/dotlyzer/internal/diagnostics"
	"github.com/Yousha/dotlyzer/internal/export"
)

var promTextfile string

// newReportCmd builds a command that runs one report against a pid.
func newReportCmd(use, short string, run func(context.Context, *app, int32) (diagnostics.Report, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <pid>",
		Short: short,
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
			report, err := run(cmd.Context(), a, pid)
			if err != nil {
				return err
			}
			return a.emit(cmd, report)
		},
	}
}

var systemCmd = newReportCmd("system", "Show identity, permissions and host information",
	func(ctx context.Context, a *app, pid int32) (diagnostics.Report, error) {
		r, err := a.agg.SystemDiagnostics(ctx, pid)
		if err != nil {
			return nil, err
		}
		return r, nil
	})

var memoryCmd = newReportCmd("memory", "Show memory counters",
	func(ctx context.Context, a *app, pid int32) (diagnostics.Report, error) {
		r, err := a.agg.MemoryAnalysis(ctx, pid)
		if err != nil {
			return nil, err
		}
		return r, nil
	})

var threadsCmd = newReportCmd("threads", "Show thread states and the busiest threads",
	func(ctx context.Context, a *app, pid int32) (diagnostics.Report, error) {
		r, err := a.agg.ThreadAnalysis(ctx, pid)
		if err != nil {
			return nil, err
		}
		return r, nil
	})

var featuresCmd = newReportCmd("features", "Show loaded modules, handle count and runtime",
	func(ctx context.Context, a *app, pid int32) (diagnostics.Report, error) {
		r, err := a.agg.DiagnosticFeatures(ctx, pid)
		if err != nil {
			return nil, err
		}
		return r, nil
	})

var permissionsCmd = newReportCmd("permissions", "Show session, priority, privilege and architecture",
	func(ctx context.Context, a *app, pid int32) (diagnostics.Report, error) {
		r, err := a.agg.Permissions(ctx, pid)
		if err != nil {
			return nil, err
		}
		return r, nil
	})

var profileCmd = newReportCmd("profile", "Show CPU usage and per-thread timing",
	func(ctx context.Context, a *app, pid int32) (diagnostics.Report, error) {
		r, err := a.agg.Profiling(ctx, pid)
		if err != nil {
			return nil, err
		}
		if promTextfile != "" {
			if err := export.WriteProfileTextfile(promTextfile, r); err != nil {
				return nil, err
			}
			a.logger.Info("metrics textfile written", "path", promTextfile)
		}
		return r, nil
	})

func init() {
	profileCmd.Flags().StringVar(&promTextfile, "prom-textfile", "",
		"also write the profile as a Prometheus textfile to this path")

	rootCmd.AddCommand(systemCmd, memoryCmd, threadsCmd, featuresCmd, profileCmd, permissionsCmd)
}
