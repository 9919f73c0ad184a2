package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOTLYZER"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
	searchDirs []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	l := &Loader{
		v:          v,
		envPrefix:  EnvPrefix,
		searchDirs: []string{"."},
	}
	if dir, err := UserConfigDir(); err == nil {
		l.searchDirs = append(l.searchDirs, dir)
	}
	return l
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithSearchDirs replaces the directories searched for .dotlyzer.yaml.
func (l *Loader) WithSearchDirs(dirs ...string) *Loader {
	l.searchDirs = dirs
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (DOTLYZER_*)
// 3. Project config (.dotlyzer.yaml in current directory)
// 4. User config (~/.config/dotlyzer/.dotlyzer.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(strings.TrimSuffix(ProjectConfigName, ".yaml"))
		l.v.SetConfigType("yaml")
		// First found wins.
		for _, dir := range l.searchDirs {
			l.v.AddConfigPath(dir)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", DefaultLogLevel)
	l.v.SetDefault("log.format", DefaultLogFormat)

	l.v.SetDefault("output.format", DefaultOutputFormat)
	l.v.SetDefault("output.color", true)

	l.v.SetDefault("dump.dir", DefaultDumpDir)
	l.v.SetDefault("dump.max_region_mb", DefaultMaxRegionMB)

	l.v.SetDefault("report.top_threads", DefaultTopThreads)
	l.v.SetDefault("report.top_modules", DefaultTopModules)
	l.v.SetDefault("report.module_listing_cap", DefaultModuleListingCap)

	l.v.SetDefault("classifier.extra_modules", []string{})
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// AllSettings returns all settings as a map.
func (l *Loader) AllSettings() map[string]interface{} {
	return l.v.AllSettings()
}
