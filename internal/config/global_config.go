package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProjectConfigName is the config file looked up in the working directory.
const ProjectConfigName = ".dotlyzer.yaml"

// UserConfigDir returns ~/.config/dotlyzer.
func UserConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "dotlyzer"), nil
}

// UserConfigPath returns the user-level config file path.
func UserConfigPath() (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ProjectConfigName), nil
}
