package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Report     ReportConfig     `yaml:"report"`
	Export     ExportConfig     `yaml:"export"`
	Queue      QueueConfig      `yaml:"queue"`
	Push       PushConfig       `yaml:"push"`
	Log        LogConfig        `yaml:"log"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the push notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Leaving the keys empty disables report completion pushes.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// ReportConfig controls how report jobs are computed.
type ReportConfig struct {
	// Workers bounds the number of stores computed concurrently within one job.
	Workers         int    `yaml:"workers"`
	DefaultTimezone string `yaml:"default_timezone"`
	// HorizonMinutes bounds flat extrapolation before the first and after the
	// last observation. Zero means unbounded.
	HorizonMinutes int           `yaml:"horizon_minutes"`
	Horizon        time.Duration `yaml:"-"`
}

// ExportConfig controls report materialization.
type ExportConfig struct {
	Dir             string        `yaml:"dir"`
	Format          string        `yaml:"format"`
	Precision       int           `yaml:"precision"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// QueueConfig selects the transport used to run report jobs in the background.
type QueueConfig struct {
	Backend   string `yaml:"backend"` // "memory" or "redis"
	Size      int    `yaml:"size"`
	Workers   int    `yaml:"workers"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	RedisKey  string `yaml:"redis_key"`
}

// LogConfig holds the zap logger settings.
type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Service string `yaml:"service"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
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
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values with working defaults.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:storepulse.db"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Report.Workers <= 0 {
		cfg.Report.Workers = 4
	}
	if cfg.Report.DefaultTimezone == "" {
		cfg.Report.DefaultTimezone = "America/Chicago"
	}
	if cfg.Report.HorizonMinutes < 0 {
		cfg.Report.HorizonMinutes = 0
	}
	cfg.Report.Horizon = time.Duration(cfg.Report.HorizonMinutes) * time.Minute

	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "reports"
	}
	if cfg.Export.Format == "" {
		cfg.Export.Format = "csv"
	}
	if cfg.Export.Precision <= 0 {
		cfg.Export.Precision = 2
	}
	if cfg.Export.CacheTTLSeconds <= 0 {
		cfg.Export.CacheTTLSeconds = 600
	}
	cfg.Export.CacheTTL = time.Duration(cfg.Export.CacheTTLSeconds) * time.Second

	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = "memory"
	}
	if cfg.Queue.Size <= 0 {
		cfg.Queue.Size = 16
	}
	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = 1
	}
	if cfg.Queue.RedisKey == "" {
		cfg.Queue.RedisKey = "storepulse:report_jobs"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Service == "" {
		cfg.Log.Service = "storepulse"
	}
}

// Validate rejects settings that cannot work at runtime.
func (cfg *Config) Validate() error {
	switch cfg.Queue.Backend {
	case "memory":
	case "redis":
		if cfg.Queue.RedisAddr == "" {
			return fmt.Errorf("queue.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown queue.backend %q", cfg.Queue.Backend)
	}

	switch cfg.Export.Format {
	case "csv", "xlsx", "parquet":
	default:
		return fmt.Errorf("unknown export.format %q", cfg.Export.Format)
	}

	if _, err := time.LoadLocation(cfg.Report.DefaultTimezone); err != nil {
		return fmt.Errorf("report.default_timezone %q: %w", cfg.Report.DefaultTimezone, err)
	}
	return nil
}
