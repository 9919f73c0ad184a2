package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateOutput(&cfg.Output)
	v.validateDump(&cfg.Dump)
	v.validateReport(&cfg.Report)
	v.validateClassifier(&cfg.Classifier)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateOutput(cfg *OutputConfig) {
	validFormats := map[string]bool{
		"text": true, "json": true, "yaml": true, "yml": true,
	}
	if !validFormats[strings.ToLower(cfg.Format)] {
		v.addError("output.format", cfg.Format, "must be one of: text, json, yaml")
	}
}

func (v *Validator) validateDump(cfg *DumpConfig) {
	if cfg.Dir == "" {
		v.addError("dump.dir", cfg.Dir, "directory required")
	} else if !isValidPath(cfg.Dir) {
		v.addError("dump.dir", cfg.Dir, "invalid directory path")
	}
	if cfg.MaxRegionMB <= 0 {
		v.addError("dump.max_region_mb", cfg.MaxRegionMB, "must be positive")
	}
}

func (v *Validator) validateReport(cfg *ReportConfig) {
	if cfg.TopThreads <= 0 {
		v.addError("report.top_threads", cfg.TopThreads, "must be positive")
	}
	if cfg.TopModules <= 0 {
		v.addError("report.top_modules", cfg.TopModules, "must be positive")
	}
	if cfg.ModuleListingCap <= 0 {
		v.addError("report.module_listing_cap", cfg.ModuleListingCap, "must be positive")
	}
}

func (v *Validator) validateClassifier(cfg *ClassifierConfig) {
	for i, name := range cfg.ExtraModules {
		field := fmt.Sprintf("classifier.extra_modules[%d]", i)
		switch {
		case strings.TrimSpace(name) == "":
			v.addError(field, name, "module name required")
		case strings.ContainsAny(name, `/\`):
			v.addError(field, name, "must be a file name, not a path")
		}
	}
}

// isValidPath rejects a path whose parent cannot be checked for a reason
// other than not existing yet.
func isValidPath(path string) bool {
	dir := filepath.Dir(path)
	_, err := os.Stat(dir)
	return err == nil || os.IsNotExist(err)
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}
