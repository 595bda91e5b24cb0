// internal/history/store.go
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"car-recommender/internal/common/config"
	"car-recommender/internal/common/database"
	"car-recommender/internal/models"
)

const (
	keyPrefix         = "recommender:history:"
	defaultMaxEntries = 50
)

// Logger interface definition
type Logger interface {
	Warn(msg string, fields map[string]interface{})
}

// Store keeps the most recent submissions per user in a capped redis list.
type Store struct {
	redis      *database.RedisClient
	maxEntries int
	ttl        time.Duration
	logger     Logger
}

func NewStore(redis *database.RedisClient, cfg config.HistoryConfig, log Logger) *Store {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Store{
		redis:      redis,
		maxEntries: maxEntries,
		ttl:        config.GetDuration(cfg.TTL),
		logger:     log,
	}
}

func Key(userID string) string {
	return keyPrefix + userID
}

// Record prepends s to its user's history.
func (s *Store) Record(ctx context.Context, sub models.Submission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	return s.redis.PushCapped(ctx, Key(sub.UserID), payload, s.maxEntries, s.ttl)
}

// Recent returns up to n submissions for userID, newest first. Entries that
// no longer decode are skipped.
func (s *Store) Recent(ctx context.Context, userID string, n int) ([]models.Submission, error) {
	if n <= 0 || n > s.maxEntries {
		n = s.maxEntries
	}

	raw, err := s.redis.Range(ctx, Key(userID), 0, int64(n-1))
	if err != nil {
		return nil, err
	}

	out := make([]models.Submission, 0, len(raw))
	for _, entry := range raw {
		var sub models.Submission
		if err := json.Unmarshal([]byte(entry), &sub); err != nil {
			s.logger.Warn("skipping unreadable history entry", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

// Clear drops the history of userID.
func (s *Store) Clear(ctx context.Context, userID string) error {
	return s.redis.Del(ctx, Key(userID))
}
