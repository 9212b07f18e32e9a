package config

import "time"

type SecurityConfig interface {
	GetReplayWindow() time.Duration
	GetReplayCacheEnabled() bool
	GetReplayCacheSize() int64
	GetAllowReactivation() bool
	GetStateSecret() string
}

type Security struct {
	ReplayWindow    time.Duration `yaml:"replay_window" env:"REPLAY_WINDOW" env-default:"5m"`
	ReplayCache     bool          `yaml:"replay_cache" env:"REPLAY_CACHE" env-default:"false"`
	ReplayCacheSize int64         `yaml:"replay_cache_size" env:"REPLAY_CACHE_SIZE" env-default:"100000"`
	// Zero value keeps reactivation on, so a file or env setting is never
	// replaced by a default.
	DisableReactivation bool   `yaml:"disable_reactivation" env:"DISABLE_REACTIVATION"`
	StateSecret         string `yaml:"state_secret" env:"STATE_SECRET"`
}

var _ SecurityConfig = Security{}

func (s Security) GetReplayWindow() time.Duration {
	return s.ReplayWindow
}

// GetReplayCacheEnabled reports whether a proof may only be used once inside
// the replay window. Off by default.
func (s Security) GetReplayCacheEnabled() bool {
	return s.ReplayCache
}

func (s Security) GetReplayCacheSize() int64 {
	return s.ReplayCacheSize
}

// GetAllowReactivation reports whether re-running the token grant may revive
// a revoked token. On unless DISABLE_REACTIVATION is set.
func (s Security) GetAllowReactivation() bool {
	return !s.DisableReactivation
}

// GetStateSecret returns the HMAC key for OAuth state, or "" to send no state.
func (s Security) GetStateSecret() string {
	return s.StateSecret
}
