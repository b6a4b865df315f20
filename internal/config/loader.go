package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment variables that override file settings
const (
	EnvAPIURL  = "TASKMGR_API_URL"
	EnvDataDir = "TASKMGR_DATA_DIR"
	EnvLogFile = "TASKMGR_LOG_FILE"
)

// Load reads .env, then the global config, then the project config (which
// overrides), then environment overrides. Missing files are skipped.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := DefaultConfig()
	for _, path := range []string{GlobalConfigPath(), ProjectConfigPath()} {
		if path == "" {
			continue
		}
		if err := loadFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadFile reads a single config file on top of the defaults
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.LogFile = v
	}
}

// GlobalConfigPath returns $XDG_CONFIG_HOME/taskmgr/config.yaml
func GlobalConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "taskmgr", "config.yaml")
}

// ProjectConfigPath returns ./.taskmgr/config.yaml
func ProjectConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".taskmgr", "config.yaml")
}
