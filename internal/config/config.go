package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dirmcp/internal/logging"
	"dirmcp/pkg/fileops"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const APP_NAME = "dirmcp" // application name used for config directory

const (
	// DefaultMaxFileSize caps how much of a single file is served (10 MiB).
	DefaultMaxFileSize int64 = 10 * 1024 * 1024
	// DefaultHTTPAddr is the listen address of the optional HTTP API.
	DefaultHTTPAddr = "127.0.0.1:8765"
	// CurrentVersion is written into newly created config files.
	CurrentVersion = "1.0"
)

// Config holds the process-wide settings. It is loaded once at startup and
// treated as immutable afterwards.
type Config struct {
	// Directory is the only directory whose files are exposed.
	Directory string `yaml:"directory" env:"DIRMCP_DIRECTORY"`
	// MaxFileSize limits file reads in bytes; negative disables the limit.
	MaxFileSize int64  `yaml:"max_file_size,omitempty" env:"DIRMCP_MAX_FILE_SIZE"`
	HTTPAddr    string `yaml:"http_addr,omitempty" env:"DIRMCP_HTTP_ADDR"`
	Version     string `yaml:"version"`   // Track config version
	InitTime    int64  `yaml:"init_time"` // Unix timestamp of first save
}

// ConfigPath returns the standard config file path for the current platform
func ConfigPath() (string, error) {
	configDir := filepath.Join(xdg.ConfigHome, APP_NAME)
	configPath := filepath.Join(configDir, "config.yaml")

	logging.Debug("Determined config paths", "path", configPath)
	return configPath, nil
}

// FindConfigFile returns the path to the config file, and whether it exists.
func FindConfigFile() (string, bool) {
	primary, err := ConfigPath()
	if err != nil {
		logging.Error("Failed to get config path", "error", err)
		return "", false
	}

	if _, err := os.Stat(primary); err == nil {
		logging.Debug("Config found at primary path", "path", primary)
		return primary, true
	}

	return primary, false
}

// DefaultConfig returns a Config with defaults and no directory.
func DefaultConfig() Config {
	return Config{
		MaxFileSize: DefaultMaxFileSize,
		HTTPAddr:    DefaultHTTPAddr,
		Version:     CurrentVersion,
	}
}

// Load builds the effective configuration.
//
// Sources are applied in order: defaults, the YAML file (explicitPath when
// set, otherwise the standard location if it exists), then DIRMCP_*
// environment variables. An explicit path that cannot be read is an error; a
// missing standard file is not, since the environment may supply everything.
// The result is not validated; call Validate before use.
func Load(explicitPath string) (*Config, error) {
	cfg := DefaultConfig()

	path, exists := explicitPath, explicitPath != ""
	if !exists {
		path, exists = FindConfigFile()
	}

	if exists {
		fileCfg, err := LoadFrom(path)
		if err != nil {
			return nil, err
		}
		cfg = *fileCfg
	} else {
		logging.Debug("No config file found, using defaults and environment", "path", path)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFrom loads config from a specific path. Fields absent from the file
// keep their defaults.
func LoadFrom(path string) (*Config, error) {
	logging.Info("Reading config file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from DIRMCP_* environment variables. Unset
// variables leave the current values alone.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Validate normalizes Directory to an absolute path and fails fast when it is
// missing, not a directory, or a reserved system location.
func (c *Config) Validate() error {
	dir := strings.TrimSpace(c.Directory)
	if dir == "" {
		return fmt.Errorf("directory is not configured (set directory in config file or DIRMCP_DIRECTORY)")
	}

	absDir, err := filepath.Abs(fileops.ExpandPath(dir))
	if err != nil {
		return fmt.Errorf("cannot resolve directory: %w", err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", absDir)
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absDir)
	}

	if fileops.IsReservedDirectory(absDir) {
		return fmt.Errorf("refusing to expose system or reserved directory: %s", absDir)
	}

	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}

	c.Directory = absDir
	return nil
}

// Save writes the config to the standard location
func (c *Config) Save() error {
	configPath, _ := FindConfigFile()
	return c.SaveTo(configPath)
}

// SaveTo writes the config to a specific path
func (c *Config) SaveTo(path string) error {
	// Set init time if this is the first save
	if c.InitTime == 0 {
		c.InitTime = time.Now().Unix()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file with restrictive permissions (600) for security
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// CreateNewConfig validates directory and writes a fresh config for it to path.
func CreateNewConfig(directory, path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Directory = directory

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid directory: %w", err)
	}

	if err := cfg.SaveTo(path); err != nil {
		return nil, fmt.Errorf("failed to save configuration: %w", err)
	}

	logging.Info("Configuration created successfully", "directory", cfg.Directory, "path", path)
	return &cfg, nil
}
