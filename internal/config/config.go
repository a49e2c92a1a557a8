// Package config loads the todo configuration from YAML and the
// environment, then checks it against an embedded CUE schema.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: TODO_BACKEND, TODO_SERVER_ADDR, ...
const EnvPrefix = "TODO"

// Config is the complete runtime configuration.
type Config struct {
	Backend     string       `mapstructure:"backend" json:"backend"`
	Database    string       `mapstructure:"database" json:"database"`
	BlobDir     string       `mapstructure:"blob_dir" json:"blob_dir"`
	Owner       string       `mapstructure:"owner" json:"owner"`
	Categories  []string     `mapstructure:"categories" json:"categories"`
	DefaultSort string       `mapstructure:"default_sort" json:"default_sort"`
	Server      ServerConfig `mapstructure:"server" json:"server"`
	Log         LogConfig    `mapstructure:"log" json:"log"`
}

// ServerConfig configures `todo serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
}

// Backends.
const (
	BackendSQLite = "sqlite"
	BackendBlob   = "blob"
)

// DefaultPath returns the config file read when none is given:
// $XDG_CONFIG_HOME/todo/config.yaml, usually ~/.config/todo/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "todo", "config.yaml")
}

// Load reads path (or DefaultPath when path is empty), applies defaults and
// TODO_* environment overrides, and validates the result.
//
// An explicit path must exist; a missing default file just means defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := readFile(v, path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Database = expandHome(cfg.Database)
	cfg.BlobDir = expandHome(cfg.BlobDir)
	for i, c := range cfg.Categories {
		cfg.Categories[i] = strings.TrimSpace(c)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
