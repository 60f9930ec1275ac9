// Package config loads tcsa configuration from YAML, merges CLI flag
// overrides and validates the result.
package config

import (
	"os"
	"path/filepath"
)

// ConfigEnvVar names an environment variable holding the config file path.
const ConfigEnvVar = "TCSA_CONFIG"

// DirName is the per-workspace configuration directory.
const DirName = ".tcsa"

// ResolveConfigPath picks the configuration file to load.
// Priority order:
//  1. explicit path (the --config flag)
//  2. TCSA_CONFIG environment variable
//  3. .tcsa/config.yaml in dir
func ResolveConfigPath(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(ConfigEnvVar); env != "" {
		return env
	}
	return filepath.Join(dir, DirName, "config.yaml")
}

// LoadConfigFromDir loads configuration from .tcsa/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, DirName, "config.yaml"))
}
