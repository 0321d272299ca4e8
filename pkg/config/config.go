package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Application settings (file + env overrides)
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// Server settings
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Dashboard pipeline settings
type DashboardConfig struct {
	DefaultRangeLabel   string        `mapstructure:"default_range_label"`
	AutoRefresh         bool          `mapstructure:"auto_refresh"`
	AutoRefreshInterval time.Duration `mapstructure:"auto_refresh_interval"`
}

// Upstream aggregate API settings
type UpstreamConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	RateLimitPerSecond int           `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
	AnalyticsProbeURL  string        `mapstructure:"analytics_probe_url"`
	TagManagerProbeURL string        `mapstructure:"tag_manager_probe_url"`
	RequestsProbeURL   string        `mapstructure:"requests_probe_url"`
}

// Snapshot cache settings
type CacheConfig struct {
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	_ = v.ReadInConfig() // optional; env can fully configure

	v.SetEnvPrefix("ADPULSE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(c *Config) {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Dashboard.DefaultRangeLabel == "" {
		c.Dashboard.DefaultRangeLabel = "Today"
	}
	if c.Dashboard.AutoRefreshInterval <= 0 {
		c.Dashboard.AutoRefreshInterval = time.Hour
	}
	if c.Upstream.RequestTimeout <= 0 {
		c.Upstream.RequestTimeout = 30 * time.Second
	}
	if c.Upstream.RateLimitPerSecond <= 0 {
		c.Upstream.RateLimitPerSecond = 100
	}
	if c.Upstream.RateLimitBurst <= 0 {
		c.Upstream.RateLimitBurst = 10
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "adpulse.db"
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = time.Hour
	}
}
