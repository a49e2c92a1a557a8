package config

import (
	"github.com/spf13/viper"

	"github.com/roach88/todo/internal/task"
)

// Default values.
const (
	DefaultBackend  = BackendSQLite
	DefaultDatabase = "~/.local/share/todo/todo.db"
	DefaultBlobDir  = "~/.local/share/todo/blob"
	DefaultSort     = "dueAt"
	DefaultAddr     = "127.0.0.1:8080"
	DefaultLogLevel = "info"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", DefaultBackend)
	v.SetDefault("database", DefaultDatabase)
	v.SetDefault("blob_dir", DefaultBlobDir)
	v.SetDefault("owner", "")
	v.SetDefault("categories", task.DefaultCategories)
	v.SetDefault("default_sort", DefaultSort)
	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("log.level", DefaultLogLevel)
}

// DefaultConfig returns the configuration used when nothing is set.
// Paths are not expanded.
func DefaultConfig() *Config {
	return &Config{
		Backend:     DefaultBackend,
		Database:    DefaultDatabase,
		BlobDir:     DefaultBlobDir,
		Categories:  append([]string(nil), task.DefaultCategories...),
		DefaultSort: DefaultSort,
		Server:      ServerConfig{Addr: DefaultAddr},
		Log:         LogConfig{Level: DefaultLogLevel},
	}
}
