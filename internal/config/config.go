// Package config loads settings from an optional YAML file and
// PROMPT_MANAGER_* environment variables.
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
)

// AppName names the per-user directories.
const AppName = "prompt-manager"

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "PROMPT_MANAGER"

// Config is the full application configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Log     LogConfig     `mapstructure:"log"`
	API     APIConfig     `mapstructure:"api"`
}

// StorageConfig locates the template file
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// SyncConfig controls how changes from other instances are noticed
type SyncConfig struct {
	Watch        bool          `mapstructure:"watch"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Debounce     time.Duration `mapstructure:"debounce"`
}

// LogConfig controls logging
type LogConfig struct {
	Verbosity int `mapstructure:"verbosity"`
}

// APIConfig controls the HTTP server
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port for the HTTP server.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// DataDir is the shared per-user data directory. It is not tied to any
// workspace so every instance sees the same file.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	return filepath.Join(xdg.DataHome, AppName)
}

// ConfigDir is where config.yaml is looked up.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultStoragePath is the template file used when none is configured.
func DefaultStoragePath() string {
	return filepath.Join(DataDir(), "prompts.json")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.path", DefaultStoragePath())
	v.SetDefault("sync.watch", true)
	v.SetDefault("sync.poll_interval", time.Second)
	v.SetDefault("sync.debounce", 100*time.Millisecond)
	v.SetDefault("log.verbosity", 0)
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)
}

// Load reads configuration. An explicit configFile must exist; otherwise
// config.yaml in ConfigDir is used when present.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(ConfigDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Storage.Path = expandHome(cfg.Storage.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}
	if c.Sync.PollInterval < 0 {
		return fmt.Errorf("sync.poll_interval must not be negative")
	}
	if c.Sync.Debounce <= 0 {
		return fmt.Errorf("sync.debounce must be positive")
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d is out of range", c.API.Port)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
