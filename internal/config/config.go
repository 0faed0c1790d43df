// Package config loads wardrobe configuration from
// ~/.config/wardrobe/config.yaml and WARDROBE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	List    ListConfig    `mapstructure:"list"`
	Poll    PollConfig    `mapstructure:"poll"`
	Cache   CacheConfig   `mapstructure:"cache"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the wardrobe server location and API token
type ServerConfig struct {
	URL   string `mapstructure:"url"`   // without /api/v1
	Token string `mapstructure:"token"` // bearer token
}

type ListConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// PollConfig holds the two refresh tiers
type PollConfig struct {
	Fast time.Duration `mapstructure:"fast"` // while items are processing
	Slow time.Duration `mapstructure:"slow"`
}

type CacheConfig struct {
	Dir     string `mapstructure:"dir"`
	Persist bool   `mapstructure:"persist"`
}

type UIConfig struct {
	Theme string `mapstructure:"theme"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		List: ListConfig{PageSize: 20},
		Poll: PollConfig{
			Fast: 5 * time.Second,
			Slow: 30 * time.Second,
		},
		Cache: CacheConfig{
			Dir:     defaultCachePath(),
			Persist: true,
		},
		UI: UIConfig{Theme: "default"},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "wardrobe", "wardrobe.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "wardrobe", "wardrobe.log")
	}
}

// DefaultDir returns the directory holding config.yaml and prefs.toml
func DefaultDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "wardrobe")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "wardrobe")
	}
}

func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "wardrobe", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "wardrobe", "cache")
	}
}

// Loader reads and writes one config directory
type Loader struct {
	v   *viper.Viper
	dir string
}

// NewLoader returns a loader for dir; an empty dir means DefaultDir()
func NewLoader(dir string) *Loader {
	if dir == "" {
		dir = DefaultDir()
	}
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("WARDROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults register every key so env overrides reach Unmarshal
	d := DefaultConfig()
	v.SetDefault("server.url", d.Server.URL)
	v.SetDefault("server.token", d.Server.Token)
	v.SetDefault("list.page_size", d.List.PageSize)
	v.SetDefault("poll.fast", d.Poll.Fast)
	v.SetDefault("poll.slow", d.Poll.Slow)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.persist", d.Cache.Persist)
	v.SetDefault("ui.theme", d.UI.Theme)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.level", d.Logging.Level)

	return &Loader{v: v, dir: dir}
}

// Dir returns the config directory
func (l *Loader) Dir() string { return l.dir }

// Load reads configuration from file and environment. A missing file is not an error.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes cfg to config.yaml in the loader's directory
func (l *Loader) Save(cfg *Config) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	l.v.Set("server.url", cfg.Server.URL)
	l.v.Set("server.token", cfg.Server.Token)
	l.v.Set("list.page_size", cfg.List.PageSize)
	l.v.Set("poll.fast", cfg.Poll.Fast.String())
	l.v.Set("poll.slow", cfg.Poll.Slow.String())
	l.v.Set("cache.dir", cfg.Cache.Dir)
	l.v.Set("cache.persist", cfg.Cache.Persist)
	l.v.Set("ui.theme", cfg.UI.Theme)
	l.v.Set("logging.file", cfg.Logging.File)
	l.v.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(l.dir, "config.yaml")
	if err := l.v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads the configuration from the default directory
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// Save writes the configuration to the default directory
func Save(cfg *Config) error {
	return NewLoader("").Save(cfg)
}

func (c *Config) normalize() {
	d := DefaultConfig()
	c.Server.URL = strings.TrimRight(strings.TrimSpace(c.Server.URL), "/")
	if c.List.PageSize <= 0 {
		c.List.PageSize = d.List.PageSize
	}
	c.List.PageSize = min(c.List.PageSize, 100)
	if c.Poll.Fast <= 0 {
		c.Poll.Fast = d.Poll.Fast
	}
	if c.Poll.Slow <= 0 {
		c.Poll.Slow = d.Poll.Slow
	}
}

// IsConfigured returns true if the server URL and token are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.Token != ""
}

// CacheDir returns the page cache directory, or "" when persistence is off
func (c *Config) CacheDir() string {
	if !c.Cache.Persist {
		return ""
	}
	return expandHome(c.Cache.Dir)
}

// ClearCache removes all cached pages for every server
func (c *Config) ClearCache() error {
	dir := expandHome(c.Cache.Dir)
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
