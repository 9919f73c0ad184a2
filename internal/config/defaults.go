package config

// Default values. The loader and DefaultConfigYAML agree on them.
const (
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "auto"
	DefaultOutputFormat     = "text"
	DefaultDumpDir          = "dumps"
	DefaultMaxRegionMB      = 256
	DefaultTopThreads       = 5
	DefaultTopModules       = 10
	DefaultModuleListingCap = 20
)

// DefaultConfigYAML contains the default configuration YAML content.
// This is what `dotlyzer config init` writes.
const DefaultConfigYAML = `# Dotlyzer configuration
#
# Values not specified here use the defaults shown. Every key can also be set
# through the environment, e.g. DOTLYZER_LOG_LEVEL=debug.

log:
  # debug | info | warn | error
  level: info
  # auto (pretty on a terminal, json otherwise) | text | json
  format: auto

output:
  # text | json | yaml
  format: text
  color: true

dump:
  # Dumps are written as dump_<pid>_<timestamp>.<ext> under this directory.
  dir: dumps
  # Largest single memory region captured by a full dump on Linux.
  max_region_mb: 256

report:
  top_threads: 5
  top_modules: 10
  module_listing_cap: 20

classifier:
  # Extra module names that mark a process as a managed runtime.
  extra_modules: []
`
