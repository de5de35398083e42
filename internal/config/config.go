// Package config loads the scriptdeck configuration file. A missing file is
// not an error: the zero configuration with defaults applied is a fully
// working setup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Timings groups the completion-inference and display intervals.
type Timings struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	QuietDelay      time.Duration `yaml:"quiet_delay"`
	HardCeiling     time.Duration `yaml:"hard_ceiling"`
	GracePeriod     time.Duration `yaml:"grace_period"`
	RefreshDebounce time.Duration `yaml:"refresh_debounce"`
}

// Config is the full configuration surface of the panel.
type Config struct {
	// ScriptRoots are the directories scanned for runnable scripts.
	ScriptRoots []string `yaml:"script_roots"`
	// IgnoreDirectories are directory names skipped during scanning.
	IgnoreDirectories []string `yaml:"ignore_directories"`
	// Extensions are the filename suffixes treated as scripts.
	Extensions []string `yaml:"extensions"`

	// DefaultWorkingDirectory overrides the per-script working directory.
	// Empty means "the script's own directory".
	DefaultWorkingDirectory string `yaml:"default_working_directory"`

	// ReusePolicy is one of never, always, smart.
	ReusePolicy string `yaml:"reuse_policy"`
	// MaxTerminals is the soft ceiling on pooled sessions.
	MaxTerminals int `yaml:"max_terminals"`
	// KeepSessionOpen keeps a session alive after its run settles.
	KeepSessionOpen bool `yaml:"keep_session_open"`

	// ConfirmBeforeExecute requires confirmation for every run.
	ConfirmBeforeExecute bool `yaml:"confirm_before_execute"`
	// Whitelist entries short-circuit the security gate to allow.
	Whitelist []string `yaml:"dangerous_commands_whitelist"`
	// Blacklist entries deny the command outright.
	Blacklist []string `yaml:"dangerous_commands_blacklist"`

	// Shell is the binary hosting commands.
	Shell string `yaml:"shell"`

	// History selects the run-history backend: "", "memory", or "redis".
	History HistoryConfig `yaml:"history"`

	Timings Timings `yaml:"timings"`
}

// HistoryConfig configures the optional run-history store.
type HistoryConfig struct {
	Backend string `yaml:"backend"`
	// Redis connection settings, used when Backend is "redis".
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Extensions:      []string{".sh"},
		ReusePolicy:     "smart",
		MaxTerminals:    8,
		KeepSessionOpen: true,
		Shell:           "/bin/sh",
		Timings: Timings{
			PollInterval:    250 * time.Millisecond,
			QuietDelay:      3 * time.Second,
			HardCeiling:     30 * time.Minute,
			GracePeriod:     1500 * time.Millisecond,
			RefreshDebounce: 500 * time.Millisecond,
		},
	}
}

// Load reads the configuration file at path. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults backfills zero values left by a partial file.
func (c *Config) applyDefaults() {
	d := Default()
	if len(c.Extensions) == 0 {
		c.Extensions = d.Extensions
	}
	if c.ReusePolicy == "" {
		c.ReusePolicy = d.ReusePolicy
	}
	if c.MaxTerminals <= 0 {
		c.MaxTerminals = d.MaxTerminals
	}
	if c.Shell == "" {
		c.Shell = d.Shell
	}
	if c.Timings.PollInterval <= 0 {
		c.Timings.PollInterval = d.Timings.PollInterval
	}
	if c.Timings.QuietDelay <= 0 {
		c.Timings.QuietDelay = d.Timings.QuietDelay
	}
	if c.Timings.HardCeiling <= 0 {
		c.Timings.HardCeiling = d.Timings.HardCeiling
	}
	if c.Timings.GracePeriod <= 0 {
		c.Timings.GracePeriod = d.Timings.GracePeriod
	}
	if c.Timings.RefreshDebounce <= 0 {
		c.Timings.RefreshDebounce = d.Timings.RefreshDebounce
	}
}
