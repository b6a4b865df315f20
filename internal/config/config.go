package config

import "time"

// Config is the client configuration
type Config struct {
	// APIURL is the root of the task-manager REST API
	APIURL string `yaml:"api_url" mapstructure:"api_url"`

	// DataDir holds the local database with the persisted session
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// LogFile receives debug logs; empty disables logging
	LogFile string `yaml:"log_file" mapstructure:"log_file"`

	// Timeout bounds each request; zero keeps the transport default
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		APIURL: "http://localhost:8080",
	}
}
