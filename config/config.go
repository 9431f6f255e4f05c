package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultFile is read when present and no other config file is named.
const DefaultFile = "library.yaml"

const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Catalog file used when none is configured, per store.
var defaultCatalogFile = map[string]string{
	StoreJSON:   "library.json",
	StoreSQLite: "library.db",
}

type Config struct {
	File  string `mapstructure:"file"`
	Store string `mapstructure:"store"`
	Log   Log    `mapstructure:"log"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with defaults and LIBRARY_* environment
// overrides. Flags are bound onto it by the caller.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("store", StoreJSON)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetEnvPrefix("library")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// file has no default of its own, so register it for Unmarshal.
	_ = v.BindEnv("file")
	return v
}

// Load reads configFile (or DefaultFile when it exists) into v and returns
// the validated settings.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	path := configFile
	if path == "" {
		path = DefaultFile
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.File == "" {
		cfg.File = defaultCatalogFile[cfg.Store]
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.File != "" && strings.TrimSpace(c.File) == "" {
		return errors.New("config: file cannot be blank")
	}
	switch c.Store {
	case StoreJSON, StoreSQLite:
	default:
		return fmt.Errorf("config: unknown store %q (want %s or %s)", c.Store, StoreJSON, StoreSQLite)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q (want auto, text or json)", c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log level: %w", err)
	}
	return lvl, nil
}
