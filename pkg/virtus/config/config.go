package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/virtuscloud/virtus/pkg/virtus/logging"
	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

// ErrNoToken is returned by RequireServer when no API token is set.
var ErrNoToken = errors.New("no API token configured (set server.token or VIRTUS_SERVER_TOKEN)")

// ServerConfig locates and authenticates against the API.
type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DeployConfig holds deploy wizard defaults.
type DeployConfig struct {
	Mode             string `mapstructure:"mode"`
	Plan             string `mapstructure:"plan"`
	FetchEntrypoints bool   `mapstructure:"fetch_entrypoints"`
}

// InspectConfig holds archive inspection defaults.
type InspectConfig struct {
	// Extensions overrides the entrypoint candidate extensions. Empty means
	// the built-in list.
	Extensions []string `mapstructure:"extensions"`
	Output     string   `mapstructure:"output"`
}

// PackConfig configures directory packing.
type PackConfig struct {
	Exclude []string `mapstructure:"exclude"`
}

// CacheConfig configures the inspection cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// HistoryConfig configures the operation history manifest.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Console    string            `mapstructure:"console"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Deploy  DeployConfig  `mapstructure:"deploy"`
	Inspect InspectConfig `mapstructure:"inspect"`
	Pack    PackConfig    `mapstructure:"pack"`
	Cache   CacheConfig   `mapstructure:"cache"`
	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.url", DefaultServerURL)
	v.SetDefault("server.token", "")
	v.SetDefault("server.timeout", DefaultTimeout)

	v.SetDefault("deploy.mode", DefaultMode)
	v.SetDefault("deploy.plan", "")
	v.SetDefault("deploy.fetch_entrypoints", false)

	v.SetDefault("inspect.extensions", []string{})
	v.SetDefault("inspect.output", DefaultOutput)

	v.SetDefault("pack.exclude", DefaultPackExclude)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "") // Empty means CacheDir()/inspections

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "") // Empty means DataDir()/history
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means logging.DefaultLogPath()
	v.SetDefault("logging.console", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.components", map[string]string{
		"archive": "info",
		"client":  "info",
		"watcher": "warn",
		"tui":     "info",
	})
}

// Prepare points v at the config file and environment. When file is empty
// the standard locations are searched:
//   - $XDG_CONFIG_HOME/virtus/config.yaml
//   - $HOME/.config/virtus/config.yaml
//
// A missing config file is not an error.
func Prepare(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "virtus"))
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "virtus"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// Decode unmarshals v into a Config, fills derived paths and validates.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	if cfg.Cache.Path, err = ExpandPath(cfg.Cache.Path); err != nil {
		return nil, err
	}
	if cfg.History.Path, err = ExpandPath(cfg.History.Path); err != nil {
		return nil, err
	}
	if cfg.Logging.Path, err = ExpandPath(cfg.Logging.Path); err != nil {
		return nil, err
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(CacheDir(), "inspections")
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(DataDir(), "history")
	}
	if cfg.Server.Timeout <= 0 {
		cfg.Server.Timeout = DefaultTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads configuration from file (or the default locations) and the
// environment into a fresh viper instance.
func Load(file string) (*Config, error) {
	v := viper.New()
	if err := Prepare(v, file); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := types.ParseMode(c.Deploy.Mode); err != nil {
		return fmt.Errorf("deploy.mode: %w", err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Rotation.MaxSize != "" {
		if _, err := types.ParseSize(c.Logging.Rotation.MaxSize); err != nil {
			return fmt.Errorf("logging.rotation.max_size: %w", err)
		}
	}
	return nil
}

// Mode returns the configured deploy mode.
func (c *Config) Mode() types.Mode {
	m, _ := types.ParseMode(c.Deploy.Mode)
	return m
}

// RequireServer reports an error when the API cannot be reached with the
// current settings.
func (c *Config) RequireServer() error {
	if strings.TrimSpace(c.Server.URL) == "" {
		return errors.New("no server url configured (set server.url)")
	}
	if strings.TrimSpace(c.Server.Token) == "" {
		return ErrNoToken
	}
	return nil
}

// LoggingConfig converts the logging section for logging.Init.
func (c *Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.ConsoleLevel = c.Logging.Console
	lc.Components = c.Logging.Components
	if c.Logging.Path != "" {
		lc.Path = c.Logging.Path
	}
	if size, err := types.ParseSize(c.Logging.Rotation.MaxSize); err == nil && size > 0 {
		lc.Rotation.MaxSize = size
	}
	if c.Logging.Rotation.MaxAge > 0 {
		lc.Rotation.MaxAge = c.Logging.Rotation.MaxAge
	}
	if c.Logging.Rotation.MaxBackups > 0 {
		lc.Rotation.MaxBackups = c.Logging.Rotation.MaxBackups
	}
	return lc
}

// ConfigDir returns $XDG_CONFIG_HOME/virtus.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "virtus")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns $XDG_DATA_HOME/virtus for history files.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "virtus")
}

// CacheDir returns $XDG_CACHE_HOME/virtus for the inspection cache.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "virtus")
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// WriteDefault writes a default config file to path if none exists and
// reports whether a file was written. An empty path means ConfigPath().
func WriteDefault(path string) (bool, error) {
	if path == "" {
		path = ConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigFile()), 0o600); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}
	return true, nil
}

func defaultConfigFile() string {
	return fmt.Sprintf(`# Virtus CLI configuration

server:
  url: %s
  # API token; prefer the VIRTUS_SERVER_TOKEN environment variable
  token: ""
  timeout: %s

deploy:
  # Entrypoint selection: auto or manual
  mode: %s
  # Plan name sent with uploads (empty lets the server decide)
  plan: ""
  # Ask the server for detected entrypoints after an upload
  fetch_entrypoints: false

inspect:
  # Candidate extensions (empty means the built-in list)
  extensions: []
  # Output format: pretty, plain, tree, json, jsonl, yaml, tsv, csv, markdown, template
  output: %s

pack:
  exclude:
    - .git/**
    - node_modules/**

cache:
  enabled: true
  # Empty means $XDG_CACHE_HOME/virtus/inspections
  path: ""

history:
  enabled: true
  # Empty means $XDG_DATA_HOME/virtus/history
  path: ""
  retention_days: %d

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means $XDG_STATE_HOME/virtus/virtus.log)
  path: ""
  # Echo records at or above this level to stderr (empty disables)
  console: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
  components:
    archive: info
    client: info
    watcher: warn
    tui: info
`, DefaultServerURL, DefaultTimeout, DefaultMode, DefaultOutput, DefaultRetentionDays)
}
