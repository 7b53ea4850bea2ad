// Package config loads passvault settings from defaults, an optional YAML
// file and PASSVAULT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/illarion/passvault/internal/storage"
	"github.com/illarion/passvault/internal/vaulterr"
)

// EnvPrefix prefixes every environment override, e.g. PASSVAULT_VAULTS_DIR
const EnvPrefix = "PASSVAULT"

// Config holds all application configuration
type Config struct {
	VaultsDir string    `mapstructure:"vaults_dir"`
	Backend   string    `mapstructure:"backend"`
	AutoSave  bool      `mapstructure:"auto_save"`
	RetainKey bool      `mapstructure:"retain_key"`
	Keyring   bool      `mapstructure:"keyring"`
	Log       LogConfig `mapstructure:"log"`

	// File is the config file that was read, empty when none was found
	File string `mapstructure:"-"`
}

// LogConfig for diagnostic logging
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("vaults_dir", filepath.Join("~", ".passvault", "vaults"))
	v.SetDefault("backend", storage.BackendBolt)
	v.SetDefault("auto_save", true)
	v.SetDefault("retain_key", true)
	v.SetDefault("keyring", true)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

// DefaultDir returns the directory searched for config.yaml
func DefaultDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "passvault")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "passvault")
	}
	return ""
}

// Load reads configuration. An explicit path must exist; without one the
// default location is tried and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, vaulterr.New(vaulterr.ErrConfiguration, "read config", err)
		}
	} else if dir := DefaultDir(); dir != "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, vaulterr.New(vaulterr.ErrConfiguration, "read config", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, vaulterr.New(vaulterr.ErrConfiguration, "decode config", err)
	}
	cfg.File = v.ConfigFileUsed()

	dir, err := expandHome(cfg.VaultsDir)
	if err != nil {
		return nil, vaulterr.New(vaulterr.ErrConfiguration, "resolve vaults_dir", err)
	}
	cfg.VaultsDir = dir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.VaultsDir == "" {
		return vaulterr.Newf(vaulterr.ErrConfiguration, "validate config", "vaults_dir is required")
	}

	switch c.Backend {
	case storage.BackendBolt, storage.BackendSQLite:
	default:
		return vaulterr.Newf(vaulterr.ErrConfiguration, "validate config", "invalid backend: %s", c.Backend)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return vaulterr.Newf(vaulterr.ErrConfiguration, "validate config", "invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return vaulterr.Newf(vaulterr.ErrConfiguration, "validate config", "invalid log format: %s", c.Log.Format)
	}

	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimLeft(path[1:], `/\`)), nil
}
