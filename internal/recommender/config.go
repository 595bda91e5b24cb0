package recommender

import (
	"time"

	"car-recommender/internal/common/config"
)

type Config struct {
	Endpoint       string
	HealthEndpoint string
	Timeout        time.Duration
	UserID         string
	RateLimit      float64
	Burst          int
}

// LoadConfig maps the recommender section of the application config.
func LoadConfig(rc config.RecommenderConfig) *Config {
	timeout := config.GetDuration(rc.Timeout)
	if timeout <= 0 {
		timeout = config.GetDuration(config.DefaultTimeout)
	}
	endpoint := rc.Endpoint
	if endpoint == "" {
		endpoint = config.DefaultEndpoint
	}
	userID := rc.UserID
	if userID == "" {
		userID = config.DefaultUserID
	}
	return &Config{
		Endpoint:       endpoint,
		HealthEndpoint: rc.HealthEndpoint,
		Timeout:        timeout,
		UserID:         userID,
		RateLimit:      rc.RateLimit,
		Burst:          rc.Burst,
	}
}
