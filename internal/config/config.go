package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultAPIBaseURL points at a local backend; deployments override it
	// via config file or TASKPAL_API_URL.
	DefaultAPIBaseURL = "http://localhost:8000"

	// DefaultHTTPTimeout bounds every request issued by the client.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultStateDir holds credentials, history and the debug log.
	DefaultStateDir = "~/.taskpal"
)

// Config is the resolved runtime configuration. Precedence: defaults, then
// the config file, then TASKPAL_* environment variables.
type Config struct {
	APIBaseURL  string        `mapstructure:"api_url"`
	HTTPTimeout time.Duration `mapstructure:"-"`
	StateDir    string        `mapstructure:"state_dir"`
	LogLevel    string        `mapstructure:"log_level"`
	NoTUI       bool          `mapstructure:"no_tui"`

	// TimeoutSeconds is the on-disk representation of HTTPTimeout.
	TimeoutSeconds int `mapstructure:"http_timeout_seconds"`
}

// Load resolves configuration from ~/.taskpal/config.yaml (when present) and
// the environment. A missing config file is not an error.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("api_url", DefaultAPIBaseURL)
	v.SetDefault("state_dir", DefaultStateDir)
	v.SetDefault("log_level", "info")
	v.SetDefault("http_timeout_seconds", int(DefaultHTTPTimeout.Seconds()))
	v.SetDefault("no_tui", false)

	if dir, err := ExpandPath(DefaultStateDir); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("TASKPAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = int(DefaultHTTPTimeout.Seconds())
	}
	cfg.HTTPTimeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	dir, err := ExpandPath(cfg.StateDir)
	if err != nil {
		return Config{}, err
	}
	cfg.StateDir = dir

	return cfg, nil
}

// ExpandPath resolves a leading "~/" against the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") && path != "~" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// CredentialsPath returns the persisted-session file location.
func (c Config) CredentialsPath() string {
	return filepath.Join(c.StateDir, "credentials.json")
}

// LogPath returns the debug log location.
func (c Config) LogPath() string {
	return filepath.Join(c.StateDir, "taskpal-debug.log")
}

// HistoryPath returns the REPL readline history location.
func (c Config) HistoryPath() string {
	return filepath.Join(c.StateDir, "history")
}
