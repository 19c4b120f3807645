package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from an optional config file and from
// environment variables. Environment variables take precedence over values
// from config files, which take precedence over the built-in defaults.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults keep the server runnable with zero configuration: file
	// persistence under ./data and a local executor endpoint.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("persistence.data_dir", "data")
	v.SetDefault("persistence.database_url", "")
	v.SetDefault("agent.default_endpoint", "http://localhost:5000")
	v.SetDefault("agent.request_timeout_ms", 10000)
	v.SetDefault("agent.poll_interval_ms", 1500)
	v.SetDefault("agent.poll_max_attempts", 120)
	v.SetDefault("agent.simulation_interval_ms", 600)
	v.SetDefault("agent.simulation_disabled", false)

	// Optional config file: ./config.yaml or $HOME/.navdeck/config.yaml.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.navdeck")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else (e.g. malformed
		// YAML) should surface.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables with the NAVDECK_ prefix override everything,
	// e.g. NAVDECK_SERVER_PORT=9090, NAVDECK_AGENT_POLL_INTERVAL_MS=500.
	v.SetEnvPrefix("NAVDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
