// Package config provides centralized configuration management for the
// packaging wrappers. It handles default values, a YAML user config file,
// environment variables and configuration validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the tool and diagnostic settings shared by all wrappers
type Config struct {
	// Tool settings
	PythonBin           string
	FpmBin              string
	DpkgBuildpackageBin string
	Shell               string

	// Diagnostic settings
	LogLevel string
	Echo     bool
	Color    string
	Buffered bool

	// Path of the user config file that was read, empty if none
	File string
}

var (
	globalConfig *Config
	globalErr    error
	configOnce   sync.Once
)

// Default values
const (
	DefaultPythonBin           = "python3"
	DefaultFpmBin              = "fpm"
	DefaultDpkgBuildpackageBin = "dpkg-buildpackage"
	DefaultShell               = "sh"
	DefaultLogLevel            = "info"
	DefaultColor               = "auto"
)

// Get returns the global configuration, loading it if not already loaded.
// When the user config file is malformed, Get falls back to defaults and
// environment; Load reports the error.
func Get() *Config {
	configOnce.Do(func() {
		globalConfig, globalErr = load()
	})
	return globalConfig
}

// Load returns the global configuration and the error, if any, of reading
// the user config file
func Load() (*Config, error) {
	cfg := Get()
	return cfg, globalErr
}

// Reset clears the global configuration, forcing reload on next Get()
// This is primarily useful for testing
func Reset() {
	configOnce = sync.Once{}
	globalConfig = nil
	globalErr = nil
}

func load() (*Config, error) {
	cfg := NewConfig()
	path := UserConfigPath()
	err := cfg.mergeFile(path)
	cfg.mergeEnv()
	return cfg, err
}

// NewConfig creates a new configuration holding the default values.
// This is useful for testing or programmatic configuration
func NewConfig() *Config {
	return &Config{
		PythonBin:           DefaultPythonBin,
		FpmBin:              DefaultFpmBin,
		DpkgBuildpackageBin: DefaultDpkgBuildpackageBin,
		Shell:               DefaultShell,
		LogLevel:            DefaultLogLevel,
		Echo:                true,
		Color:               DefaultColor,
	}
}

// UserConfigPath returns $PACKAGING_CONFIG, or config.yaml below the user
// config directory
func UserConfigPath() string {
	if path := os.Getenv("PACKAGING_CONFIG"); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "packaging-tools", "config.yaml")
}

// fileConfig is the YAML layout of the user config file
type fileConfig struct {
	Tools struct {
		Python           string `yaml:"python"`
		Fpm              string `yaml:"fpm"`
		DpkgBuildpackage string `yaml:"dpkg_buildpackage"`
	} `yaml:"tools"`
	Shell    string `yaml:"shell"`
	LogLevel string `yaml:"log_level"`
	Echo     *bool  `yaml:"echo"`
	Color    string `yaml:"color"`
	Buffered *bool  `yaml:"buffered"`
}

// mergeFile overlays the settings of a YAML config file. A missing file is
// not an error.
func (c *Config) mergeFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	c.PythonBin = override(c.PythonBin, fc.Tools.Python)
	c.FpmBin = override(c.FpmBin, fc.Tools.Fpm)
	c.DpkgBuildpackageBin = override(c.DpkgBuildpackageBin, fc.Tools.DpkgBuildpackage)
	c.Shell = override(c.Shell, fc.Shell)
	c.LogLevel = override(c.LogLevel, fc.LogLevel)
	c.Color = override(c.Color, fc.Color)
	if fc.Echo != nil {
		c.Echo = *fc.Echo
	}
	if fc.Buffered != nil {
		c.Buffered = *fc.Buffered
	}
	c.File = path
	return nil
}

// mergeEnv overlays settings from environment variables
func (c *Config) mergeEnv() {
	c.PythonBin = getEnv("PACKAGING_PYTHON", c.PythonBin)
	c.FpmBin = getEnv("PACKAGING_FPM", c.FpmBin)
	c.DpkgBuildpackageBin = getEnv("PACKAGING_DPKG_BUILDPACKAGE", c.DpkgBuildpackageBin)
	c.Shell = getEnv("PACKAGING_SHELL", c.Shell)
	c.LogLevel = getEnv("PACKAGING_LOG_LEVEL", c.LogLevel)
	c.Color = getEnv("PACKAGING_COLOR", c.Color)
	c.Echo = getEnvBool("PACKAGING_ECHO", c.Echo)
	c.Buffered = getEnvBool("PACKAGING_BUFFERED", c.Buffered)
}

// WithTools configures the packaging tool paths. Empty values are ignored.
func (c *Config) WithTools(python, fpm, dpkgBuildpackage string) *Config {
	c.PythonBin = override(c.PythonBin, python)
	c.FpmBin = override(c.FpmBin, fpm)
	c.DpkgBuildpackageBin = override(c.DpkgBuildpackageBin, dpkgBuildpackage)
	return c
}

// WithDiagnostics configures the diagnostic stream
func (c *Config) WithDiagnostics(level string, echo bool, color string) *Config {
	c.LogLevel = override(c.LogLevel, level)
	c.Echo = echo
	c.Color = override(c.Color, color)
	return c
}

// WithBuffered selects the buffered command runner
func (c *Config) WithBuffered(buffered bool) *Config {
	c.Buffered = buffered
	return c
}

// Validate checks if the configuration is valid for the intended use
func (c *Config) Validate() error {
	if c.PythonBin == "" || c.FpmBin == "" || c.DpkgBuildpackageBin == "" {
		return fmt.Errorf("tool paths must not be empty")
	}
	if c.Shell == "" {
		return fmt.Errorf("shell must not be empty")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid color mode %q: want auto, always or never", c.Color)
	}
	return nil
}

// Helper functions for environment variable parsing

func override(current, value string) string {
	if value != "" {
		return value
	}
	return current
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
