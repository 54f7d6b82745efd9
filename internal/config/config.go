// Package config provides configuration management for the Cutroom Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort             = 8791
	DefaultLogLevel         = "info"
	DefaultDataDir          = ".cutroom"
	DefaultProject          = "default"
	DefaultAutosaveInterval = 30 // seconds

	// Environment variable names
	EnvPort             = "CUTROOM_PORT"
	EnvLogLevel         = "CUTROOM_LOG_LEVEL"
	EnvDataDir          = "CUTROOM_DATA_DIR"
	EnvProject          = "CUTROOM_PROJECT"
	EnvAutosaveInterval = "CUTROOM_AUTOSAVE_INTERVAL_S"
	EnvAllowOverlap     = "CUTROOM_ALLOW_OVERLAP"

	// Database filename
	DBFilename = "cutroom.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	Project() string
	AutosaveInterval() time.Duration
	AllowOverlap() bool
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port             int
	logLevel         string
	dataDir          string
	project          string
	autosaveInterval time.Duration
	allowOverlap     bool
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:             DefaultPort,
		logLevel:         DefaultLogLevel,
		dataDir:          defaultDataDir(),
		project:          DefaultProject,
		autosaveInterval: DefaultAutosaveInterval * time.Second,
		allowOverlap:     true,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if pr := os.Getenv(EnvProject); pr != "" {
		cfg.project = pr
	}

	if iv := os.Getenv(EnvAutosaveInterval); iv != "" {
		secs, err := strconv.Atoi(iv)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvAutosaveInterval, err)
		}
		if secs < 1 {
			return nil, fmt.Errorf("invalid %s: interval must be at least 1 second", EnvAutosaveInterval)
		}
		cfg.autosaveInterval = time.Duration(secs) * time.Second
	}

	if ov := os.Getenv(EnvAllowOverlap); ov != "" {
		allow, err := strconv.ParseBool(ov)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvAllowOverlap, err)
		}
		cfg.allowOverlap = allow
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// Project returns the active project name used for autosaves
func (c *EnvConfig) Project() string {
	return c.project
}

// AutosaveInterval returns the time between autosave checks
func (c *EnvConfig) AutosaveInterval() time.Duration {
	return c.autosaveInterval
}

// AllowOverlap reports whether same-track clips may occupy intersecting
// timeline intervals
func (c *EnvConfig) AllowOverlap() bool {
	return c.allowOverlap
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
