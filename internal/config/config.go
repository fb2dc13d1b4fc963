package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the variable holding the server config path.
const ConfigPathEnv = "TOWERGATE_CONFIG"

// DefaultConfigPath is used when ConfigPathEnv is not set.
const DefaultConfigPath = "config/towergate.yaml"

// Server holds all configuration for the zone server.
type Server struct {
	LogLevel  string `yaml:"log_level" env:"TOWERGATE_LOG_LEVEL"`
	ZonesFile string `yaml:"zones_file" env:"TOWERGATE_ZONES_FILE"`
	HTTPAddr  string `yaml:"http_addr" env:"TOWERGATE_HTTP_ADDR"`

	// Database is optional: without it regions come from the zones file only
	// and progression lives in memory.
	Database DatabaseConfig `yaml:"database"`

	// Redis selects the external region backend when URL is set.
	Redis RedisConfig `yaml:"redis"`

	CacheSize     int    `yaml:"cache_size"`     // gated zone LRU capacity (default: 100)
	Workers       int64  `yaml:"workers"`        // async job concurrency (default: 4)
	QueueSize     int    `yaml:"queue_size"`     // dispatcher inbox (default: 1024)
	PublishEvents bool   `yaml:"publish_events"` // publish transition events on Redis
	EventsChannel string `yaml:"events_channel"`

	// Bypass lists entity names or UUIDs granted the admission bypass.
	Bypass []string `yaml:"bypass" env:"TOWERGATE_BYPASS" envSeparator:","`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	// URL overrides the discrete fields when set.
	URL      string `yaml:"url" env:"TOWERGATE_DATABASE_DSN"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != "" || d.Host != ""
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// RedisConfig configures the Redis region authority and event channel.
type RedisConfig struct {
	URL             string        `yaml:"url" env:"TOWERGATE_REDIS_URL"`
	Key             string        `yaml:"key"`
	Channel         string        `yaml:"channel"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		LogLevel:      "info",
		ZonesFile:     "config/zones.yaml",
		HTTPAddr:      "127.0.0.1:8089",
		CacheSize:     100,
		Workers:       4,
		QueueSize:     1024,
		EventsChannel: "towergate:events",
		Redis: RedisConfig{
			Key:             "towergate:regions",
			Channel:         "towergate:regions:changed",
			RefreshInterval: 30 * time.Second,
			DialTimeout:     3 * time.Second,
		},
	}
}

// ServerPath returns the config path from the environment or the default.
func ServerPath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	return DefaultConfigPath
}

// LoadServer loads server config from a YAML file and applies environment
// overrides. If the file doesn't exist, defaults are used.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("applying environment to config: %w", err)
	}
	return cfg, nil
}
