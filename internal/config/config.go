package config

// Config holds all application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Output     OutputConfig     `mapstructure:"output"`
	Dump       DumpConfig       `mapstructure:"dump"`
	Report     ReportConfig     `mapstructure:"report"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig configures how reports are printed.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// DumpConfig configures process dumps.
type DumpConfig struct {
	Dir string `mapstructure:"dir"`
	// MaxRegionMB caps a single memory region in a full Linux dump.
	MaxRegionMB int `mapstructure:"max_region_mb"`
}

// ReportConfig sizes the ranked sections of reports.
type ReportConfig struct {
	TopThreads       int `mapstructure:"top_threads"`
	TopModules       int `mapstructure:"top_modules"`
	ModuleListingCap int `mapstructure:"module_listing_cap"`
}

// ClassifierConfig extends managed-runtime detection.
type ClassifierConfig struct {
	// ExtraModules are module names that mark a process as managed in
	// addition to the built-in runtime modules.
	ExtraModules []string `mapstructure:"extra_modules"`
}

// MaxRegionBytes is MaxRegionMB in bytes.
func (c DumpConfig) MaxRegionBytes() uint64 {
	if c.MaxRegionMB <= 0 {
		return 0
	}
	return uint64(c.MaxRegionMB) << 20
}
