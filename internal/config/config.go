// Package config loads the engine's runtime configuration the way
// dagu's CLI loads its own: a YAML file resolved through the XDG base
// directories, a .env file for local overrides, and environment
// variables, all merged through viper with ENGINE_-prefixed env keys
// taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every recognized option from spec.md §6, plus the
// domain-stack connection settings SPEC_FULL.md adds for the metadata
// store, cache, and object storage.
type Config struct {
	ServicePort            int           `mapstructure:"service_port"`
	SchedulerEnabled       bool          `mapstructure:"scheduler_enabled"`
	SchedulerPollInterval  time.Duration `mapstructure:"scheduler_poll_interval"`
	MaxConcurrentTasks     int           `mapstructure:"max_concurrent_tasks"`
	TaskTimeout            time.Duration `mapstructure:"task_timeout"`
	Debug                  bool          `mapstructure:"debug"`
	LogFormat              string        `mapstructure:"log_format"`

	PostgresDSN string `mapstructure:"postgres_dsn"`
	RedisAddr   string `mapstructure:"redis_addr"`

	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`
}

const appName = "etl-engine"

// defaults mirrors spec.md §6's stated defaults.
func defaults(v *viper.Viper) {
	v.SetDefault("service_port", 8080)
	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("scheduler_poll_interval", 60)
	v.SetDefault("max_concurrent_tasks", 10)
	v.SetDefault("task_timeout", 3600)
	v.SetDefault("log_format", "text")
	v.SetDefault("postgres_dsn", "postgres://localhost:5432/etl_engine")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("minio_endpoint", "localhost:9000")
	v.SetDefault("minio_use_ssl", false)
}

// Load resolves configuration from (in ascending priority): built-in
// defaults, a config file (explicit configFile, or the XDG config dir's
// etl-engine/config.yaml), a .env file in the working directory, and
// ENGINE_-prefixed environment variables.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("ENGINE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		xdgPath, err := xdg.ConfigFile(fmt.Sprintf("%s/config.yaml", appName))
		if err == nil {
			v.SetConfigFile(xdgPath)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if configFile != "" {
				return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
			}
		}
	}

	var cfg Config
	pollSeconds := v.GetInt("scheduler_poll_interval")
	timeoutSeconds := v.GetInt("task_timeout")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.SchedulerPollInterval = time.Duration(pollSeconds) * time.Second
	cfg.TaskTimeout = time.Duration(timeoutSeconds) * time.Second

	return &cfg, nil
}
