package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	RabbitMQ                RabbitMQConfig  `mapstructure:"rabbitmq"`
	Database                DatabaseConfig  `mapstructure:"database"`
	Server                  ServerConfig    `mapstructure:"server"`
	Logging                 LoggingConfig   `mapstructure:"logging"`
	Auth                    AuthConfig      `mapstructure:"auth"`
	Metrics                 MetricsConfig   `mapstructure:"metrics"`
	Gateway                 GatewayConfig   `mapstructure:"gateway"`
	Scheduler               SchedulerConfig `mapstructure:"scheduler"`
	Monitor                 MonitorConfig   `mapstructure:"monitor"`
	Webhook                 WebhookConfig   `mapstructure:"webhook"`
	GracefulShutdownTimeout time.Duration   `mapstructure:"graceful_shutdown_timeout"`
}

// RabbitMQConfig is optional. With an empty URL inbound webhook events are
// processed inline by the HTTP handler.
type RabbitMQConfig struct {
	URL          string `mapstructure:"url"`
	WebhookQueue string `mapstructure:"webhook_queue"`
	Workers      int    `mapstructure:"workers"`
}

type DatabaseConfig struct {
	URL         string `mapstructure:"url"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
	MaxConns    int32  `mapstructure:"max_conns"`
	MinConns    int32  `mapstructure:"min_conns"`
}

type ServerConfig struct {
	Host          string  `mapstructure:"host"`
	Port          int     `mapstructure:"port"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`
	RequireAuth bool   `mapstructure:"require_auth"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type GatewayConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	DefaultRegion string        `mapstructure:"default_region"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
}

type SchedulerConfig struct {
	Timezone            string        `mapstructure:"timezone"`
	OutsideHoursBackoff time.Duration `mapstructure:"outside_hours_backoff"`
	NotReadyBackoff     time.Duration `mapstructure:"not_ready_backoff"`
	ErrorBackoff        time.Duration `mapstructure:"error_backoff"`
	CycleTimeout        time.Duration `mapstructure:"cycle_timeout"`
	ResumeOnBoot        bool          `mapstructure:"resume_on_boot"`
}

type MonitorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type WebhookConfig struct {
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.rate_per_second", 20.0)
	v.SetDefault("server.burst", 40)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("graceful_shutdown_timeout", "30s")

	v.SetDefault("database.url", "")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_conns", 30)
	v.SetDefault("database.min_conns", 5)

	v.SetDefault("auth.jwt_secret", "your-256-bit-secret-key-for-development-only-change-in-production")
	v.SetDefault("auth.require_auth", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.webhook_queue", "evolution_webhook_events")
	v.SetDefault("rabbitmq.workers", 3)

	v.SetDefault("gateway.timeout", "30s")
	v.SetDefault("gateway.default_region", "BR")
	v.SetDefault("gateway.rate_per_second", 1.0)
	v.SetDefault("gateway.burst", 3)

	v.SetDefault("scheduler.timezone", "Local")
	v.SetDefault("scheduler.outside_hours_backoff", "60s")
	v.SetDefault("scheduler.not_ready_backoff", "30s")
	v.SetDefault("scheduler.error_backoff", "30s")
	v.SetDefault("scheduler.cycle_timeout", "2m")
	v.SetDefault("scheduler.resume_on_boot", true)

	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.interval", "5m")

	v.SetDefault("webhook.rate_per_second", 50.0)
	v.SetDefault("webhook.burst", 100)
}

func validateConfig(cfg *Config) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if cfg.RabbitMQ.URL != "" && cfg.RabbitMQ.Workers <= 0 {
		return fmt.Errorf("rabbitmq.workers must be greater than 0")
	}

	if cfg.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway.timeout must be greater than 0")
	}

	s := cfg.Scheduler
	if s.OutsideHoursBackoff <= 0 || s.NotReadyBackoff <= 0 || s.ErrorBackoff <= 0 {
		return fmt.Errorf("scheduler backoffs must be greater than 0")
	}
	if s.CycleTimeout <= 0 {
		return fmt.Errorf("scheduler.cycle_timeout must be greater than 0")
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}

	if cfg.Monitor.Enabled && cfg.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be greater than 0")
	}

	return nil
}

// Location resolves the timezone used for the active-hours window.
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}
