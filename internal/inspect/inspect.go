// Package inspect reads one process at a time: identity, metrics, threads,
// modules and permissions. Every read goes to the OS; nothing is cached.
//
// Readers return per-field core.Result values so that a restricted counter
// marks only itself as unavailable. Only NotFound (the process is gone) fails
// a whole read.
package inspect

import (
	"errors"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/logging"
	"github.com/Yousha/dotlyzer/internal/platform"
)

// Settings are the report limits and classifier identifiers.
type Settings struct {
	TopThreads       int
	TopModules       int
	ModuleListingCap int
	// RuntimeModules are the module names that mark a managed runtime.
	RuntimeModules []string
}

// DefaultSettings returns the stock limits.
func DefaultSettings() Settings {
	return Settings{
		TopThreads:       5,
		TopModules:       10,
		ModuleListingCap: 20,
		RuntimeModules:   DefaultRuntimeModules(),
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.TopThreads <= 0 {
		s.TopThreads = d.TopThreads
	}
	if s.TopModules <= 0 {
		s.TopModules = d.TopModules
	}
	if s.ModuleListingCap <= 0 {
		s.ModuleListingCap = d.ModuleListingCap
	}
	if len(s.RuntimeModules) == 0 {
		s.RuntimeModules = d.RuntimeModules
	}
	return s
}

// Inspector runs the per-process readers against one platform.
type Inspector struct {
	plat     platform.Platform
	settings Settings
	logger   *logging.Logger

	now        func() time.Time
	callerArgs []string
}

// New creates an inspector. A nil logger discards output.
func New(plat platform.Platform, settings Settings, logger *logging.Logger) *Inspector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Inspector{
		plat:       plat,
		settings:   settings.withDefaults(),
		logger:     logger.WithComponent("inspect"),
		now:        time.Now,
		callerArgs: os.Args,
	}
}

// Platform exposes the native boundary the inspector was built with.
func (in *Inspector) Platform() platform.Platform {
	return in.plat
}

// Settings returns the effective limits.
func (in *Inspector) Settings() Settings {
	return in.settings
}

// classify maps gopsutil failures onto the error taxonomy.
func classify(err error, pid int32, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, process.ErrorProcessNotRunning) {
		return core.ErrNotFound(pid).WithCause(err)
	}
	return core.Classify(err, pid, what)
}
