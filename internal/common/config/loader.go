// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads the layered configuration: base yaml, environment-specific yaml,
// then environment variable overrides (e.g. REDIS_ADDRESS, SCHEDULER_CRON_KEY).
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional per-environment overlay

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "weather-notify")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.base_url", "https://weather-base-app.vercel.app/")

	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.read_timeout", 10000)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("weather.forecast_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("weather.geocode_url", "https://geocoding-api.open-meteo.com/v1/search")
	v.SetDefault("weather.timeout", 10000)
	v.SetDefault("weather.max_retries", 3)

	v.SetDefault("push.timeout", 15000)

	v.SetDefault("fanout.batch_limit", 100)
	v.SetDefault("fanout.scan_limit", 1000)
	v.SetDefault("fanout.batches_per_second", 1.0)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.hour", 7)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
