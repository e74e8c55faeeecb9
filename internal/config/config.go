// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Monitoring    MonitoringConfig   `yaml:"monitoring"`
	Logging       LoggingConfig      `yaml:"logging"`
	Prometheus    PrometheusConfig   `yaml:"prometheus"`
	Notifications NotificationConfig `yaml:"notifications"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type MonitoringConfig struct {
	DefaultInterval time.Duration `yaml:"default_interval"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PrometheusConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsPath string `yaml:"metrics_path"`
}

type NotificationConfig struct {
	Pushover PushoverConfig `yaml:"pushover"`
}

type PushoverConfig struct {
	Enabled  bool           `yaml:"enabled"`
	APIToken string         `yaml:"api_token"`
	UserKey  string         `yaml:"user_key"`
	Priority int            `yaml:"priority"`
	Sound    string         `yaml:"sound"`
	Device   string         `yaml:"device"`
	Throttle ThrottleConfig `yaml:"throttle"`
}

type ThrottleConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Window       time.Duration `yaml:"window"`
	MaxPerTarget int           `yaml:"max_per_target"`
	MaxTotal     int           `yaml:"max_total"`
}

func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a usable configuration without a config file.
func Default() *Config {
	config := &Config{}
	setDefaults(config)
	return config
}

func setDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = ":8080"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 30 * time.Second
	}
	if config.Database.Path == "" {
		config.Database.Path = "data/hostpulse.db"
	}
	if config.Monitoring.DefaultInterval == 0 {
		config.Monitoring.DefaultInterval = 30 * time.Second
	}
	if config.Monitoring.ProbeTimeout == 0 {
		config.Monitoring.ProbeTimeout = 5 * time.Second
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
	if config.Prometheus.MetricsPath == "" {
		config.Prometheus.MetricsPath = "/metrics"
	}
	if config.Notifications.Pushover.Throttle.Window == 0 {
		config.Notifications.Pushover.Throttle.Window = time.Hour
	}
	if config.Notifications.Pushover.Throttle.MaxPerTarget == 0 {
		config.Notifications.Pushover.Throttle.MaxPerTarget = 10
	}
	if config.Notifications.Pushover.Throttle.MaxTotal == 0 {
		config.Notifications.Pushover.Throttle.MaxTotal = 50
	}
}

func validate(config *Config) error {
	if config.Monitoring.DefaultInterval < time.Second {
		return fmt.Errorf("monitoring.default_interval must be at least 1s, got %s", config.Monitoring.DefaultInterval)
	}
	if config.Monitoring.ProbeTimeout < time.Second {
		return fmt.Errorf("monitoring.probe_timeout must be at least 1s, got %s", config.Monitoring.ProbeTimeout)
	}
	if config.Notifications.Pushover.Enabled && config.Notifications.Pushover.APIToken == "" {
		return fmt.Errorf("notifications.pushover.api_token is required when pushover is enabled")
	}
	if config.Notifications.Pushover.Enabled && config.Notifications.Pushover.UserKey == "" {
		return fmt.Errorf("notifications.pushover.user_key is required when pushover is enabled")
	}
	return nil
}
