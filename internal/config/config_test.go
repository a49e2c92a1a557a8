package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/todo/internal/task"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// isolate points the default config location at an empty directory so the
// developer's own config never leaks into a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, task.DefaultCategories, cfg.Categories)
	assert.Equal(t, "dueAt", cfg.DefaultSort)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Owner)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".local/share/todo/todo.db"), cfg.Database)
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := writeConfig(t, `
backend: blob
blob_dir: `+dir+`
owner: alice
categories: [Home, Garden]
default_sort: priority
server:
  addr: ":9090"
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendBlob, cfg.Backend)
	assert.Equal(t, dir, cfg.BlobDir)
	assert.Equal(t, "alice", cfg.Owner)
	assert.Equal(t, []string{"Home", "Garden"}, cfg.Categories)
	assert.Equal(t, "priority", cfg.DefaultSort)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DefaultPathIsRead(t *testing.T) {
	isolate(t)
	xdg := os.Getenv("XDG_CONFIG_HOME")
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "todo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "todo", "config.yaml"), []byte("owner: bob\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.Owner)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "owner: alice\n")
	t.Setenv("TODO_OWNER", "carol")
	t.Setenv("TODO_SERVER_ADDR", "0.0.0.0:7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "carol", cfg.Owner)
	assert.Equal(t, "0.0.0.0:7000", cfg.Server.Addr)
}

func TestLoad_ExpandsHome(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "database: ~/data/tasks.db\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "data/tasks.db"), cfg.Database)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestLoad_MalformedYAML(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "backend: [unclosed\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "backend: postgres\n")

	_, err := Load(path)
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "backend", ve.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"defaults", func(*Config) {}, ""},
		{"blob backend", func(c *Config) { c.Backend = BackendBlob }, ""},
		{"unknown backend", func(c *Config) { c.Backend = "redis" }, "backend"},
		{"unknown sort", func(c *Config) { c.DefaultSort = "text" }, "default_sort"},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"no categories", func(c *Config) { c.Categories = []string{} }, "categories"},
		{"blank category", func(c *Config) { c.Categories = []string{"Work", ""} }, "categories"},
		{"addr without port", func(c *Config) { c.Server.Addr = "localhost" }, "server.addr"},
		{"sqlite without database", func(c *Config) { c.Database = "" }, "database"},
		{"blob without dir", func(c *Config) { c.Backend = BackendBlob; c.BlobDir = "" }, "blob_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.edit(cfg)

			err := Validate(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.True(t, strings.HasPrefix(ve.Field, tt.field), "field %q", ve.Field)
			assert.Contains(t, ve.Error(), "invalid config: "+tt.field)
		})
	}
}

func TestDefaultConfig_CopiesCategories(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Categories[0] = "Changed"
	assert.Equal(t, "Personal", task.DefaultCategories[0])
}
