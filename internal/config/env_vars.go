package config

import (
	"strings"
	"time"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
	GetLogLevel() string
	GetRequestTimeout() time.Duration
}

type EnvVars struct {
	Env            string        `yaml:"env" env:"ENV" env-default:"DEV"`
	Port           string        `yaml:"port" env:"PORT" env-default:"8080"`
	AppName        string        `yaml:"app_name" env:"APP_NAME" env-default:"keygrant"`
	BaseURL        string        `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"10s"`
}

var _ EnvConfig = EnvVars{}

// GetPort returns the listen address, always with a leading colon.
func (e EnvVars) GetPort() string {
	if strings.HasPrefix(e.Port, ":") {
		return e.Port
	}
	return ":" + e.Port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

// GetBaseURL returns the externally visible server URL (e.g., "https://keys.example.com").
// The GitHub callback redirect is built from it.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(e.BaseURL, "/")
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) GetRequestTimeout() time.Duration {
	return e.RequestTimeout
}
