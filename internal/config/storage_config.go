package config

import "time"

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type StorageConfig interface {
	GetStorageDriver() string
	GetSQLitePath() string
	GetDatabaseURL() string
	GetSessionTTL() time.Duration
	GetSessionGCInterval() time.Duration
}

type Storage struct {
	Driver            string        `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`
	SQLitePath        string        `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"./data/keygrant.db"`
	DatabaseURL       string        `yaml:"database_url" env:"DATABASE_URL"`
	SessionTTL        time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"24h"`
	SessionGCInterval time.Duration `yaml:"session_gc_interval" env:"SESSION_GC_INTERVAL" env-default:"10m"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetStorageDriver() string {
	return s.Driver
}

func (s Storage) GetSQLitePath() string {
	return s.SQLitePath
}

func (s Storage) GetDatabaseURL() string {
	return s.DatabaseURL
}

func (s Storage) GetSessionTTL() time.Duration {
	return s.SessionTTL
}

// GetSessionGCInterval is how often expired sessions are purged; zero disables it.
func (s Storage) GetSessionGCInterval() time.Duration {
	return s.SessionGCInterval
}
