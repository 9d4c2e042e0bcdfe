// Package config loads and persists Stagehand configuration via viper.
//
// Configuration is read from $HOME/.config/stagehand/config.yaml and can
// be overridden by environment variables with the STAGEHAND prefix, e.g.
// STAGEHAND_KANBAN_ENABLED=1 or STAGEHAND_KANBAN_PROJECT_ID=<uuid>.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete Stagehand configuration.
type Config struct {
	Branch  BranchConfig  `mapstructure:"branch"`
	Kanban  KanbanConfig  `mapstructure:"kanban"`
	Logging LoggingConfig `mapstructure:"logging"`
	Paths   PathsConfig   `mapstructure:"paths"`
}

// BranchConfig controls branch and base-ref conventions.
type BranchConfig struct {
	// DefaultBase is the base ref used for stages with no dependency (default: "main")
	DefaultBase string `mapstructure:"default_base"`
}

// KanbanConfig controls the task-board integration.
type KanbanConfig struct {
	// Enabled turns board mirroring on (default: false)
	Enabled bool `mapstructure:"enabled"`
	// ProjectID is the persisted active board project id
	ProjectID string `mapstructure:"project_id"`
	// Port is the port the background board service listens on (default: 57429)
	Port int `mapstructure:"port"`
}

// LoggingConfig controls structured logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN, ERROR (default: INFO)
	Level string `mapstructure:"level"`
}

// PathsConfig controls filesystem locations.
type PathsConfig struct {
	// StateDir overrides the session-state directory (default: ~/.stagehand)
	StateDir string `mapstructure:"state_dir"`
}

// SetDefaults registers default values for all configuration keys.
// Must be called before reading the config file so defaults apply even
// when no file exists.
func SetDefaults() {
	viper.SetDefault("branch.default_base", "main")
	viper.SetDefault("kanban.enabled", false)
	viper.SetDefault("kanban.project_id", "")
	viper.SetDefault("kanban.port", 57429)
	viper.SetDefault("logging.level", "INFO")
	viper.SetDefault("paths.state_dir", "")
}

// BindEnv wires environment variable overrides. Nested keys map with
// dots replaced by underscores, e.g. kanban.project_id becomes
// STAGEHAND_KANBAN_PROJECT_ID.
func BindEnv() {
	viper.SetEnvPrefix("STAGEHAND")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Get returns the current configuration, applying defaults for any
// missing values.
func Get() *Config {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		// Fall back to pure defaults on a corrupt config file.
		SetDefaults()
		_ = viper.Unmarshal(&cfg)
	}

	if cfg.Branch.DefaultBase == "" {
		cfg.Branch.DefaultBase = "main"
	}
	if cfg.Kanban.Port == 0 {
		cfg.Kanban.Port = 57429
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	return &cfg
}

// ConfigDir returns the directory holding the config file.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "stagehand")
	}
	return filepath.Join(home, ".config", "stagehand")
}

// StateDir returns the directory holding session state: the last-session
// hint, per-session tracking artifacts, and the log file.
func StateDir() string {
	if dir := viper.GetString("paths.state_dir"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".stagehand")
	}
	return filepath.Join(home, ".stagehand")
}

// SaveProjectID persists the active board project id to the config file,
// creating the file if it does not exist.
func SaveProjectID(projectID string) error {
	viper.Set("kanban.project_id", projectID)

	if err := os.MkdirAll(ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfig(); err != nil {
		// No config file yet: write a new one at the default location.
		path := filepath.Join(ConfigDir(), "config.yaml")
		if err := viper.WriteConfigAs(path); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}
	return nil
}
