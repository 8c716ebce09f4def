// Package config resolves where reportory keeps its data and how it logs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "REPORTORY"

	KeyDataDir   = "data_dir"
	KeyDatabase  = "database"
	KeyLang      = "lang"
	KeyLogLevel  = "log_level"
	KeyLogFormat = "log_format"

	DefaultDatabase = "reportoryDB"
)

type Config struct {
	DataDir   string `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	Database  string `mapstructure:"database" yaml:"database"`
	Lang      string `mapstructure:"lang" yaml:"lang"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"data-dir":  KeyDataDir,
	"lang":      KeyLang,
	"log-level": KeyLogLevel,
}

// DefaultDir is the per-user config directory, e.g. ~/.config/reportory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(base, "reportory"), nil
}

// Default is the configuration used when nothing is set. Data lives next to
// the config file.
func Default(dir string) Config {
	return Config{
		DataDir:   dir,
		Database:  DefaultDatabase,
		Lang:      "ko",
		LogLevel:  "warn",
		LogFormat: "console",
	}
}

// Load layers, lowest first: defaults, <dir>/config.yaml, REPORTORY_*
// environment variables (a .env file in the working directory is read
// first), then any flags in fs that were set. A missing config.yaml is not an
// error. fs may be nil.
func Load(dir string, fs *pflag.FlagSet) (Config, error) {
	_ = godotenv.Load(".env")

	def := Default(dir)
	v := viper.New()
	v.SetDefault(KeyDataDir, def.DataDir)
	v.SetDefault(KeyDatabase, def.Database)
	v.SetDefault(KeyLang, def.Lang)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyLogFormat, def.LogFormat)

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("config: data_dir is empty")
	}
	if c.Database == "" || filepath.Base(c.Database) != c.Database {
		return fmt.Errorf("config: invalid database name %q", c.Database)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("config: log_format %q (want console or json)", c.LogFormat)
	}
	return nil
}

// DatabasePath is the SQLite file backing the named database.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.Database+".db")
}

// SettingsDir holds the settings namespace. It sits beside the database
// file, never inside it, so destroying the database keeps settings.
func (c Config) SettingsDir() string {
	return filepath.Join(c.DataDir, "settings")
}

// WriteDefault writes a default config.yaml into dir unless one exists.
func WriteDefault(dir string) (path string, created bool, err error) {
	path = filepath.Join(dir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !os.IsNotExist(err) {
		return path, false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return path, false, fmt.Errorf("create config directory: %w", err)
	}

	cfg := Default(dir)
	cfg.DataDir = ""
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return path, false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return path, false, fmt.Errorf("write config: %w", err)
	}
	return path, true, nil
}
