package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Hub        HubConfig        `yaml:"hub"`
	Status     StatusConfig     `yaml:"status"`
	Janitor    JanitorConfig    `yaml:"janitor"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// HubConfig selects the broadcast backend. With an empty Redis address the
// process fans out messages in memory and stays single-instance.
type HubConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// StatusConfig holds the occupancy snapshot and websocket heartbeat settings.
type StatusConfig struct {
	CacheTTLSeconds          int           `yaml:"cache_ttl_seconds"`
	CacheTTL                 time.Duration `yaml:"-"`
	RoomHeartbeatSeconds     int           `yaml:"room_heartbeat_seconds"`
	RoomHeartbeat            time.Duration `yaml:"-"`
	OverviewHeartbeatSeconds int           `yaml:"overview_heartbeat_seconds"`
	OverviewHeartbeat        time.Duration `yaml:"-"`
}

// JanitorConfig holds the background maintenance settings.
type JanitorConfig struct {
	Enabled               bool          `yaml:"enabled"`
	IntervalSeconds       int           `yaml:"interval_seconds"`
	Interval              time.Duration `yaml:"-"`
	PendingTimeoutMinutes int           `yaml:"pending_timeout_minutes"`
	PendingTimeout        time.Duration `yaml:"-"`
	RetentionDays         int           `yaml:"retention_days"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Status.CacheTTLSeconds <= 0 {
		cfg.Status.CacheTTLSeconds = 30
	}
	cfg.Status.CacheTTL = time.Duration(cfg.Status.CacheTTLSeconds) * time.Second

	if cfg.Status.RoomHeartbeatSeconds <= 0 {
		cfg.Status.RoomHeartbeatSeconds = 30
	}
	cfg.Status.RoomHeartbeat = time.Duration(cfg.Status.RoomHeartbeatSeconds) * time.Second

	if cfg.Status.OverviewHeartbeatSeconds <= 0 {
		cfg.Status.OverviewHeartbeatSeconds = 60
	}
	cfg.Status.OverviewHeartbeat = time.Duration(cfg.Status.OverviewHeartbeatSeconds) * time.Second

	if cfg.Janitor.IntervalSeconds <= 0 {
		cfg.Janitor.IntervalSeconds = 60
	}
	cfg.Janitor.Interval = time.Duration(cfg.Janitor.IntervalSeconds) * time.Second

	if cfg.Janitor.PendingTimeoutMinutes <= 0 {
		cfg.Janitor.PendingTimeoutMinutes = 15
	}
	cfg.Janitor.PendingTimeout = time.Duration(cfg.Janitor.PendingTimeoutMinutes) * time.Minute

	if cfg.Janitor.RetentionDays <= 0 {
		cfg.Janitor.RetentionDays = 90
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
