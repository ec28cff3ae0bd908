// Package config loads the orchestrator configuration from YAML with
// environment overrides, and hot-reloads the user preference profiles
// when their file changes on disk.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full orchestrator configuration.
type Config struct {
	Service     ServiceConfig     `mapstructure:"service"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Temporal    TemporalConfig    `mapstructure:"temporal"`
	Agents      AgentsConfig      `mapstructure:"agents"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
}

// ServiceConfig contains basic service configuration.
type ServiceConfig struct {
	MetricsPort     int           `mapstructure:"metrics_port"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

// RedisConfig points at the Redis instance backing the session, memory
// and shared-state stores.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

// TemporalConfig points at the Temporal cluster.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
}

// AgentsConfig tunes the HTTP client for the agent service.
type AgentsConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	Burst          int           `mapstructure:"burst"`
}

// DatabaseConfig configures the optional run-archive database.
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// PreferencesConfig locates the user preference profiles.
type PreferencesConfig struct {
	File string `mapstructure:"file"`
}

// Load reads configuration from CONFIG_PATH (default
// config/orchestrator.yaml). A missing file is not an error; defaults
// and RESEARCH_* environment overrides still apply.
func Load() (*Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/orchestrator.yaml"
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(cfgPath); err == nil {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.metrics_port", 2112)
	v.SetDefault("service.graceful_timeout", 15*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")

	v.SetDefault("agents.base_url", "http://localhost:8088")
	v.SetDefault("agents.timeout", 60*time.Second)
	v.SetDefault("agents.requests_per_sec", 10.0)
	v.SetDefault("agents.burst", 5)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.dsn", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "research-orchestrator")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")

	v.SetDefault("preferences.file", "")
}
