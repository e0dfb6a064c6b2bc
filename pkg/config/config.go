package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig `yaml:"server"`
	Logging LogConfig    `yaml:"logging"`
}

// ServerConfig contains the listener and per-connection settings. It is
// immutable once the server has been constructed from it.
type ServerConfig struct {
	Port           int    `yaml:"port"`
	BaseDir        string `yaml:"base_dir"`
	ReadTimeout    int    `yaml:"read_timeout"`    // in seconds
	ShutdownGrace  int    `yaml:"shutdown_grace"`  // in seconds, applied twice (graceful, then forced)
	MaxConnections int    `yaml:"max_connections"` // 0 means unbounded
}

// LogConfig contains settings for logging
type LogConfig struct {
	LogToFile   bool   `yaml:"log_to_file"`
	LogFilePath string `yaml:"log_file_path"`
	MaxSize     int    `yaml:"max_size"`    // maximum size in megabytes
	MaxBackups  int    `yaml:"max_backups"` // maximum number of old log files to retain
	MaxAge      int    `yaml:"max_age"`     // maximum number of days to retain old log files
	Compress    bool   `yaml:"compress"`    // compress determines if the rotated log files should be compressed
}

// ReadTimeoutDuration returns the per-connection read timeout.
func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// ShutdownGraceDuration returns one shutdown grace period.
func (s ServerConfig) ShutdownGraceDuration() time.Duration {
	return time.Duration(s.ShutdownGrace) * time.Second
}

// LoadDefault returns a configuration with default values
func LoadDefault() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			BaseDir:        ".",
			ReadTimeout:    60,
			ShutdownGrace:  60,
			MaxConnections: 0,
		},
		Logging: LogConfig{
			LogToFile:   false,
			LogFilePath: "staticd.log",
			MaxSize:     10,
			MaxBackups:  3,
			MaxAge:      28,
			Compress:    true,
		},
	}
}

// Default returns a configuration with default values
// This is an alias for LoadDefault for backward compatibility
func Default() *Config {
	return LoadDefault()
}

// Load reads configuration from a file and merges it with default values
func Load(configPath string) (*Config, error) {
	// Start with default configuration
	cfg := LoadDefault()

	// Read configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Create a temporary config to parse the file
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Merge server configuration
	if fileCfg.Server.Port > 0 {
		cfg.Server.Port = fileCfg.Server.Port
	}
	if fileCfg.Server.BaseDir != "" {
		cfg.Server.BaseDir = fileCfg.Server.BaseDir
	}
	if fileCfg.Server.ReadTimeout > 0 {
		cfg.Server.ReadTimeout = fileCfg.Server.ReadTimeout
	}
	if fileCfg.Server.ShutdownGrace > 0 {
		cfg.Server.ShutdownGrace = fileCfg.Server.ShutdownGrace
	}
	if fileCfg.Server.MaxConnections > 0 {
		cfg.Server.MaxConnections = fileCfg.Server.MaxConnections
	}

	// Merge logging configuration
	if fileCfg.Logging.LogToFile {
		cfg.Logging.LogToFile = fileCfg.Logging.LogToFile
	}
	if fileCfg.Logging.LogFilePath != "" {
		cfg.Logging.LogFilePath = fileCfg.Logging.LogFilePath
	}
	if fileCfg.Logging.MaxSize > 0 {
		cfg.Logging.MaxSize = fileCfg.Logging.MaxSize
	}
	if fileCfg.Logging.MaxBackups > 0 {
		cfg.Logging.MaxBackups = fileCfg.Logging.MaxBackups
	}
	if fileCfg.Logging.MaxAge > 0 {
		cfg.Logging.MaxAge = fileCfg.Logging.MaxAge
	}
	if fileCfg.Logging.Compress {
		cfg.Logging.Compress = fileCfg.Logging.Compress
	}

	return cfg, nil
}

// LoadOrDefault attempts to load configuration from a file
// If the file doesn't exist or can't be parsed, it returns default configuration
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Log the error but continue with defaults
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", configPath, err)
		fmt.Fprintf(os.Stderr, "Using default configuration\n")
		cfg = LoadDefault()
	}
	return cfg
}
