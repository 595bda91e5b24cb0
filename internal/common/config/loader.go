// internal/common/config/loader.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultEndpoint = "http://localhost:8000/recommend"
	DefaultUserID   = "demo-user-1"
	DefaultTimeout  = 30000
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on
// top and applies environment overrides. Missing files are not an error.
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

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideFromEnv(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders left in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideFromEnv applies the short environment names from .env.example.
// They win over file values.
func overrideFromEnv(cfg *Config) {
	if val := os.Getenv("RECOMMENDER_ENDPOINT"); val != "" {
		cfg.Recommender.Endpoint = val
	}
	if val := os.Getenv("RECOMMENDER_USER_ID"); val != "" {
		cfg.Recommender.UserID = val
	}
	if val := os.Getenv("REDIS_ADDRESS"); val != "" {
		cfg.Database.Redis.Address = val
	}
	if val := os.Getenv("CAMUNDA_BROKER_ADDRESS"); val != "" {
		cfg.Camunda.BrokerAddress = val
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "car-recommender"
	}

	if cfg.Recommender.Endpoint == "" {
		cfg.Recommender.Endpoint = DefaultEndpoint
	}
	if cfg.Recommender.HealthEndpoint == "" {
		cfg.Recommender.HealthEndpoint = deriveHealthEndpoint(cfg.Recommender.Endpoint)
	}
	if cfg.Recommender.Timeout == 0 {
		cfg.Recommender.Timeout = DefaultTimeout
	}
	if cfg.Recommender.UserID == "" {
		cfg.Recommender.UserID = DefaultUserID
	}
	if cfg.Recommender.RateLimit > 0 && cfg.Recommender.Burst == 0 {
		cfg.Recommender.Burst = 1
	}

	if cfg.History.MaxEntries == 0 {
		cfg.History.MaxEntries = 50
	}
	if cfg.History.TTL == 0 {
		cfg.History.TTL = int((7 * 24 * time.Hour).Milliseconds())
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = cfg.Recommender.Timeout
		}
		cfg.Workers[key] = worker
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":8080"
	}
}

// deriveHealthEndpoint keeps scheme and host of endpoint and swaps the
// path for /health, which is where the recommendation service reports.
func deriveHealthEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Path = "/health"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func validateConfig(cfg *Config) error {
	if err := validateHTTPURL("recommender.endpoint", cfg.Recommender.Endpoint); err != nil {
		return err
	}
	if cfg.Recommender.HealthEndpoint != "" {
		if err := validateHTTPURL("recommender.health_endpoint", cfg.Recommender.HealthEndpoint); err != nil {
			return err
		}
	}
	if cfg.Recommender.Timeout < 0 {
		return fmt.Errorf("recommender.timeout must be positive")
	}
	if cfg.Recommender.RateLimit < 0 {
		return fmt.Errorf("recommender.rate_limit must not be negative")
	}

	if cfg.History.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when history is enabled")
	}
	if cfg.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative")
	}

	return nil
}

func validateHTTPURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, raw)
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       cfg.Recommender.Timeout,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled.
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
