package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Yousha/dotlyzer/internal/config"
	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/diagnostics"
	"github.com/Yousha/dotlyzer/internal/export"
	"github.com/Yousha/dotlyzer/internal/inspect"
	"github.com/Yousha/dotlyzer/internal/logging"
	"github.com/Yousha/dotlyzer/internal/platform"
	"github.com/Yousha/dotlyzer/internal/tui"
)

// newPlatform is replaced in tests.
var newPlatform = platform.New

// flagKeys maps config keys to the persistent flags that override them.
var flagKeys = map[string]string{
	"log.level":     "log-level",
	"log.format":    "log-format",
	"output.format": "output",
}

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	loader   *config.Loader
	logger   *logging.Logger
	agg      *diagnostics.Aggregator
	format   export.Format
	useColor bool
}

// setup loads and validates configuration and wires the inspector stack.
func setup(cmd *cobra.Command) (*app, error) {
	v := viper.New()
	flags := cmd.Root().PersistentFlags()
	for key, name := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("binding --%s: %w", name, err)
		}
	}

	loader := config.NewLoaderWithViper(v)
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	format, err := export.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if used := loader.ConfigFile(); used != "" {
		logger.Debug("config loaded", "path", used)
	}

	settings := inspect.Settings{
		TopThreads:       cfg.Report.TopThreads,
		TopModules:       cfg.Report.TopModules,
		ModuleListingCap: cfg.Report.ModuleListingCap,
		RuntimeModules:   append(inspect.DefaultRuntimeModules(), cfg.Classifier.ExtraModules...),
	}
	plat := newPlatform(platform.WithMaxRegionBytes(cfg.Dump.MaxRegionBytes()))
	in := inspect.New(plat, settings, logger)

	return &app{
		cfg:      cfg,
		loader:   loader,
		logger:   logger,
		agg:      diagnostics.New(in, logger, diagnostics.WithDumpDir(cfg.Dump.Dir)),
		format:   format,
		useColor: cfg.Output.Color && tui.NewDetector().NoColor(noColor).ShouldUseColor(),
	}, nil
}

// emit prints report in the configured format, or writes it atomically to
// --out.
func (a *app) emit(cmd *cobra.Command, report diagnostics.Report) error {
	if outFile != "" {
		data, err := a.encode(report)
		if err != nil {
			return err
		}
		if err := export.WriteFile(outFile, data); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		a.logger.Info("report written", "path", outFile, "kind", report.Meta().Kind)
		return nil
	}
	if a.format.Structured() {
		return export.Encode(cmd.OutOrStdout(), a.format, report)
	}
	return tui.NewRenderer(cmd.OutOrStdout(), a.useColor).Render(report)
}

// encode renders report for a file; text files carry no color.
func (a *app) encode(report diagnostics.Report) ([]byte, error) {
	if a.format.Structured() {
		return export.Marshal(a.format, report)
	}
	text, err := tui.NewRenderer(io.Discard, false).Format(report)
	return []byte(text), err
}

func parsePID(arg string) (int32, error) {
	pid, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		return 0, core.ErrValidation(core.CodeInvalidPID, fmt.Sprintf("invalid process id %q", arg))
	}
	return int32(pid), nil
}
