// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig               `mapstructure:"app"`
	Recommender RecommenderConfig       `mapstructure:"recommender"`
	Database    DatabaseConfig          `mapstructure:"database"`
	History     HistoryConfig           `mapstructure:"history"`
	Camunda     CamundaConfig           `mapstructure:"camunda"`
	Workers     map[string]WorkerConfig `mapstructure:"workers"`
	Logging     LoggingConfig           `mapstructure:"logging"`
	Metrics     MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// RecommenderConfig points the client at the recommendation service.
type RecommenderConfig struct {
	Endpoint       string  `mapstructure:"endpoint"`
	HealthEndpoint string  `mapstructure:"health_endpoint"`
	Timeout        int     `mapstructure:"timeout"` // milliseconds
	UserID         string  `mapstructure:"user_id"`
	RateLimit      float64 `mapstructure:"rate_limit"` // requests per second, 0 disables
	Burst          int     `mapstructure:"burst"`
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HistoryConfig controls the redis-backed submission history.
type HistoryConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxEntries int  `mapstructure:"max_entries"`
	TTL        int  `mapstructure:"ttl"` // milliseconds
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig controls the /health, /ready and /metrics listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
