package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/garnizeh/rojgar/internal/models"
)

const (
	questionKeyPrefix = "questions:"

	// DefaultQuestionTTL bounds how long a generated set is served from Redis.
	DefaultQuestionTTL = 24 * time.Hour
)

// QuestionCache stores question sets as JSON strings keyed by stack.
type QuestionCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewQuestionCache returns a question cache; a non-positive ttl uses DefaultQuestionTTL.
func NewQuestionCache(c *Cache, ttl time.Duration) *QuestionCache {
	if ttl <= 0 {
		ttl = DefaultQuestionTTL
	}
	return &QuestionCache{cache: c, ttl: ttl}
}

func questionKey(stack string) string {
	return questionKeyPrefix + stack
}

// Get returns the cached set for stack, or nil, nil on a miss.
func (q *QuestionCache) Get(ctx context.Context, stack string) (*models.QuestionSet, error) {
	b, err := q.cache.client.Get(ctx, questionKey(stack)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var qs models.QuestionSet
	if err := json.Unmarshal(b, &qs); err != nil {
		// drop the unreadable entry so the next read falls through
		q.cache.client.Del(ctx, questionKey(stack))
		return nil, fmt.Errorf("decode cached question set: %w", err)
	}
	return &qs, nil
}

// Set stores qs under its stack with the cache TTL.
func (q *QuestionCache) Set(ctx context.Context, qs *models.QuestionSet) error {
	b, err := json.Marshal(qs)
	if err != nil {
		return err
	}
	if err := q.cache.client.Set(ctx, questionKey(qs.Stack), b, q.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache question set: %w", err)
	}
	return nil
}

// Delete removes the cached set for stack.
func (q *QuestionCache) Delete(ctx context.Context, stack string) error {
	return q.cache.client.Del(ctx, questionKey(stack)).Err()
}
