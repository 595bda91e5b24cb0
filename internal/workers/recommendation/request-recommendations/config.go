// internal/workers/recommendation/request-recommendations/config.go
package requestrecommendations

import (
	"time"

	"car-recommender/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	DefaultUserID string
}

func LoadConfig(cfg *config.Config) *Config {
	timeout := config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	if timeout <= 0 {
		timeout = config.GetDuration(config.DefaultTimeout)
	}
	userID := cfg.Recommender.UserID
	if userID == "" {
		userID = config.DefaultUserID
	}
	return &Config{
		Timeout:       timeout,
		DefaultUserID: userID,
	}
}
