// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Push      PushConfig      `mapstructure:"push"`
	Fanout    FanoutConfig    `mapstructure:"fanout"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	// BaseURL is the public mini-app URL used as the notification target link.
	BaseURL string `mapstructure:"base_url"`
}

type ServerConfig struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	ReadTimeout int    `mapstructure:"read_timeout"` // milliseconds
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WeatherConfig holds settings for the Open-Meteo current-conditions client.
type WeatherConfig struct {
	ForecastURL string `mapstructure:"forecast_url"`
	GeocodeURL  string `mapstructure:"geocode_url"`
	Timeout     int    `mapstructure:"timeout"`     // milliseconds
	MaxRetries  int    `mapstructure:"max_retries"` // outbound retry budget
}

// PushConfig holds settings for the push provider dispatch calls.
type PushConfig struct {
	Timeout int `mapstructure:"timeout"` // milliseconds
}

// FanoutConfig tunes the daily fan-out run.
type FanoutConfig struct {
	// BatchLimit is the provider's maximum tokens per call.
	BatchLimit int `mapstructure:"batch_limit"`
	// ScanLimit bounds how many recipients one run loads from the store;
	// the remainder is left for the next trigger.
	ScanLimit int `mapstructure:"scan_limit"`
	// BatchesPerSecond paces provider calls (token-bucket rate).
	BatchesPerSecond float64 `mapstructure:"batches_per_second"`
}

// SchedulerConfig controls the daily trigger.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Hour is the UTC hour of day the morning run fires.
	Hour int `mapstructure:"hour"`
	// CronKey authorizes the HTTP trigger endpoint; external callers
	// without it are rejected.
	CronKey string `mapstructure:"cron_key"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func validateConfig(cfg *Config) error {
	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required")
	}
	if cfg.Fanout.BatchLimit <= 0 {
		return fmt.Errorf("fanout batch_limit must be positive")
	}
	if cfg.Scheduler.Enabled && cfg.Scheduler.CronKey == "" {
		return fmt.Errorf("scheduler cron_key is required when the scheduler is enabled")
	}
	if cfg.Scheduler.Hour < 0 || cfg.Scheduler.Hour > 23 {
		return fmt.Errorf("scheduler hour must be in [0,23]")
	}
	return nil
}
