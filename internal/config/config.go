// Package config holds the user settings of varsift. Settings come from
// ~/.varsift.yaml and VARSIFT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/varsift/internal/vcf"
)

// EnvPrefix prefixes environment overrides, e.g. VARSIFT_IMPORT_BATCH_SIZE.
const EnvPrefix = "VARSIFT"

// FileName is the config file name in the home directory.
const FileName = ".varsift.yaml"

// Log modes.
const (
	LogDevelopment = "development"
	LogProduction  = "production"
)

// Proxy types.
const (
	ProxyNone   = "none"
	ProxyHTTP   = "http"
	ProxySocks5 = "socks5"
)

// Config is the full settings object.
type Config struct {
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Import  ImportConfig  `mapstructure:"import" yaml:"import"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	UI      UIConfig      `mapstructure:"ui" yaml:"ui"`
	Proxy   ProxyConfig   `mapstructure:"proxy" yaml:"proxy"`
	Plugins PluginsConfig `mapstructure:"plugins" yaml:"plugins"`
}

// StoreConfig selects the project database.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// ImportConfig holds defaults for the import command.
type ImportConfig struct {
	BatchSize  int    `mapstructure:"batch_size" yaml:"batch_size"`
	Strict     bool   `mapstructure:"strict" yaml:"strict"`
	Dialect    string `mapstructure:"dialect" yaml:"dialect"`
	SkipHomRef bool   `mapstructure:"skip_hom_ref" yaml:"skip_hom_ref"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Mode  string `mapstructure:"mode" yaml:"mode"`
	Level string `mapstructure:"level" yaml:"level"`
}

// UIConfig holds presentation settings. varsift validates and stores them
// for front-ends reading the same config file.
type UIConfig struct {
	Locale string `mapstructure:"locale" yaml:"locale"`
	Style  string `mapstructure:"style" yaml:"style"`
}

// ProxyConfig holds network proxy settings for front-ends sharing the config
// file. Passwords are never stored.
type ProxyConfig struct {
	Type     string `mapstructure:"type" yaml:"type"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
}

// PluginsConfig lists plugins that are not loaded.
type PluginsConfig struct {
	Disabled []string `mapstructure:"disabled" yaml:"disabled"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "duckdb")
	v.SetDefault("store.path", "")
	v.SetDefault("import.batch_size", 1000)
	v.SetDefault("import.strict", false)
	v.SetDefault("import.dialect", "")
	v.SetDefault("import.skip_hom_ref", false)
	v.SetDefault("log.mode", LogDevelopment)
	v.SetDefault("log.level", "info")
	v.SetDefault("ui.locale", "en")
	v.SetDefault("ui.style", "default")
	v.SetDefault("proxy.type", ProxyNone)
	v.SetDefault("proxy.host", "")
	v.SetDefault("proxy.port", 0)
	v.SetDefault("proxy.username", "")
	v.SetDefault("plugins.disabled", []string{})
}

// DefaultPath returns ~/.varsift.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// NewViper returns a viper instance with defaults and env overrides set up.
// An empty path searches the home directory for the default file.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
	}
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file of v, if any, and decodes the settings. A
// missing file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the settings of v to path, or to the file v was read from
// when path is empty, or to ~/.varsift.yaml.
func Save(v *viper.Viper, path string) (string, error) {
	if path == "" {
		path = v.ConfigFileUsed()
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return "", err
		}
		path = p
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return path, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "duckdb", "sqlite3", "sqlite":
	default:
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}
	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("import.batch_size: must be positive, got %d", c.Import.BatchSize)
	}
	if _, err := vcf.ParseDialect(c.Import.Dialect); err != nil {
		return fmt.Errorf("import.dialect: %w", err)
	}
	switch c.Log.Mode {
	case LogDevelopment, LogProduction:
	default:
		return fmt.Errorf("log.mode: must be %s or %s, got %q", LogDevelopment, LogProduction, c.Log.Mode)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Proxy.Type {
	case ProxyNone, ProxyHTTP, ProxySocks5:
	default:
		return fmt.Errorf("proxy.type: unknown type %q", c.Proxy.Type)
	}
	if c.Proxy.Port < 0 || c.Proxy.Port > 65535 {
		return fmt.Errorf("proxy.port: out of range: %d", c.Proxy.Port)
	}
	return nil
}
