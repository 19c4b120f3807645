package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Persistence PersistenceConfig `mapstructure:"persistence" validate:"required"`
	Agent       AgentConfig       `mapstructure:"agent"       validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// PersistenceConfig selects and configures the durable-state backend.
// When DatabaseURL is set the postgres adapter is used; otherwise state is
// mirrored to JSON files under DataDir.
type PersistenceConfig struct {
	DataDir     string `mapstructure:"data_dir"     validate:"required_without=DatabaseURL"`
	DatabaseURL string `mapstructure:"database_url" validate:"omitempty,url"`
}

// AgentConfig contains settings for the remote task executor integration
// and the local fallback simulation.
type AgentConfig struct {
	// DefaultEndpoint seeds the backend endpoint when none has been
	// persisted yet. The effective endpoint is mutable at runtime.
	DefaultEndpoint string `mapstructure:"default_endpoint" validate:"required,url"`

	// RequestTimeoutMS bounds each individual HTTP request to the executor.
	RequestTimeoutMS int `mapstructure:"request_timeout_ms" validate:"required,gt=0"`

	// PollIntervalMS is the fixed delay between status queries for a
	// remotely executing task.
	PollIntervalMS int `mapstructure:"poll_interval_ms" validate:"required,gt=0"`

	// PollMaxAttempts is the hard attempt budget per task; exhausting it
	// marks the task failed.
	PollMaxAttempts int `mapstructure:"poll_max_attempts" validate:"required,gt=0"`

	// SimulationIntervalMS is the fixed delay between simulated progress
	// phases when the executor is unreachable.
	SimulationIntervalMS int `mapstructure:"simulation_interval_ms" validate:"required,gt=0"`

	// SimulationDisabled turns off the local fallback; submission failures
	// then terminate the task as failed immediately.
	SimulationDisabled bool `mapstructure:"simulation_disabled"`
}
