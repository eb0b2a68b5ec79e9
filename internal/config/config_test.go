package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Store.Driver)
	assert.Equal(t, 1000, cfg.Import.BatchSize)
	assert.False(t, cfg.Import.Strict)
	assert.Equal(t, LogDevelopment, cfg.Log.Mode)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ProxyNone, cfg.Proxy.Type)
	assert.Empty(t, cfg.Plugins.Disabled)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "varsift.yaml")
	content := `store:
  driver: sqlite3
  path: /data/project.db
import:
  batch_size: 250
  strict: true
  dialect: vep
log:
  mode: production
  level: debug
proxy:
  type: http
  host: proxy.local
  port: 3128
plugins:
  disabled: [samples]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(NewViper(path))
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Store.Driver)
	assert.Equal(t, "/data/project.db", cfg.Store.Path)
	assert.Equal(t, 250, cfg.Import.BatchSize)
	assert.True(t, cfg.Import.Strict)
	assert.Equal(t, "vep", cfg.Import.Dialect)
	assert.Equal(t, LogProduction, cfg.Log.Mode)
	assert.Equal(t, "proxy.local", cfg.Proxy.Host)
	assert.Equal(t, 3128, cfg.Proxy.Port)
	assert.Equal(t, []string{"samples"}, cfg.Plugins.Disabled)
	// Unset keys keep their defaults.
	assert.Equal(t, "en", cfg.UI.Locale)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VARSIFT_IMPORT_BATCH_SIZE", "42")
	t.Setenv("VARSIFT_LOG_LEVEL", "warn")

	cfg, err := Load(NewViper(filepath.Join(t.TempDir(), "missing.yaml")))
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Import.BatchSize)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "store: [", "reading config"},
		{"driver", "store:\n  driver: oracle\n", "store.driver"},
		{"batch size", "import:\n  batch_size: 0\n", "import.batch_size"},
		{"dialect", "import:\n  dialect: annovar\n", "import.dialect"},
		{"log mode", "log:\n  mode: verbose\n", "log.mode"},
		{"log level", "log:\n  level: loud\n", "log.level"},
		{"proxy", "proxy:\n  type: ftp\n", "proxy.type"},
		{"port", "proxy:\n  port: 70000\n", "proxy.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "varsift.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(NewViper(path))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "varsift.yaml")

	v := NewViper(path)
	_, err := Load(v)
	require.NoError(t, err)

	v.Set("import.batch_size", 500)
	v.Set("ui.style", "dark")
	written, err := Save(v, "")
	require.NoError(t, err)
	assert.Equal(t, path, written)

	cfg, err := Load(NewViper(path))
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Import.BatchSize)
	assert.Equal(t, "dark", cfg.UI.Style)
}
