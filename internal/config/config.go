// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/constants"
)

// Config is the root configuration structure.
type Config struct {
	API    APIConfig    `toml:"api"`
	Server ServerConfig `toml:"server"`
}

// APIConfig holds settings for the inbox client's connection to the backend.
type APIConfig struct {
	Endpoint string `toml:"endpoint"`
	Token    string `toml:"token"`
	PageSize int    `toml:"page_size"`
}

// ServerConfig holds settings for the reference backend.
type ServerConfig struct {
	Listen string `toml:"listen"`
	Token  string `toml:"token"`
	DBPath string `toml:"db_path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Endpoint: "http://localhost:8314",
			PageSize: constants.MessagePageSize,
		},
		Server: ServerConfig{
			Listen: ":8314",
		},
	}
}

// Load reads configuration from a TOML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Load from file if it exists
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, err
			}
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SICRM_ENDPOINT"); v != "" {
		cfg.API.Endpoint = v
	}

	if v := os.Getenv("SICRM_TOKEN"); v != "" {
		cfg.API.Token = v
		if cfg.Server.Token == "" {
			cfg.Server.Token = v
		}
	}

	if v := os.Getenv("SICRM_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.API.PageSize = n
		}
	}

	if v := os.Getenv("SICRM_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}

	if v := os.Getenv("SICRM_DB_PATH"); v != "" {
		cfg.Server.DBPath = v
	}
}

// DataDir returns the path to the SI-CRM data directory (~/.sicrm).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sicrm"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
