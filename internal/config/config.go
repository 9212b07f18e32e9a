// Package config loads server settings from an optional YAML file overlaid
// with environment variables, and exposes them through narrow getter
// interfaces so each component depends only on what it reads.
package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	GitHubConfig
	SecurityConfig
	StorageConfig
	Validate() error
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars  `yaml:",inline"`
	Cors     `yaml:"cors"`
	GitHub   `yaml:"github"`
	Security `yaml:"security"`
	Storage  `yaml:"storage"`
}

var _ Config = (*mainConfig)(nil)

// MustLoad is Load that panics on error.
func MustLoad(path string) Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads path (or CONFIG_PATH when path is empty) if one is given, then
// overlays environment variables, then validates the result.
func Load(path string) (Config, error) {
	var cfg mainConfig

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", path, err)
		}
		// ReadConfig overlays env vars on top of the file.
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints cleanenv cannot express.
func (c *mainConfig) Validate() error {
	if c.GitHub.ClientID == "" || c.GitHub.ClientSecret == "" {
		return fmt.Errorf("[config] GH_CLIENT_ID and GH_CLIENT_SECRET are required")
	}

	u, err := url.Parse(c.EnvVars.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("[config] BASE_URL %q must be an absolute URL", c.EnvVars.BaseURL)
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("[config] SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("[config] DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("[config] unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Storage.SessionTTL <= 0 {
		return fmt.Errorf("[config] SESSION_TTL must be positive")
	}
	if c.Security.ReplayWindow <= 0 {
		return fmt.Errorf("[config] REPLAY_WINDOW must be positive")
	}
	return nil
}
