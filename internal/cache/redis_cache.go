package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when no cached value exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// GradeSummaryCache caches aggregation results per student and course.
// Aggregation is read-only and idempotent, so the cache only needs
// invalidation on the entry write path.
type GradeSummaryCache interface {
	Get(ctx context.Context, courseID, studentID uint, dest interface{}) error
	Set(ctx context.Context, courseID, studentID uint, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, courseID, studentID uint) error
	InvalidateCourse(ctx context.Context, courseID uint) error
}

type redisGradeSummaryCache struct {
	client *redis.Client
}

func NewRedisGradeSummaryCache(client *redis.Client) GradeSummaryCache {
	return &redisGradeSummaryCache{client: client}
}

func summaryKey(courseID, studentID uint) string {
	return fmt.Sprintf("grade:summary:%d:%d", courseID, studentID)
}

func (r *redisGradeSummaryCache) Get(ctx context.Context, courseID, studentID uint, dest interface{}) error {
	data, err := r.client.Get(ctx, summaryKey(courseID, studentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *redisGradeSummaryCache) Set(ctx context.Context, courseID, studentID uint, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, summaryKey(courseID, studentID), data, ttl).Err()
}

func (r *redisGradeSummaryCache) Invalidate(ctx context.Context, courseID, studentID uint) error {
	return r.client.Del(ctx, summaryKey(courseID, studentID)).Err()
}

func (r *redisGradeSummaryCache) InvalidateCourse(ctx context.Context, courseID uint) error {
	pattern := fmt.Sprintf("grade:summary:%d:*", courseID)
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// NoopGradeSummaryCache satisfies GradeSummaryCache without caching;
// used in tests and when Redis is not configured.
type NoopGradeSummaryCache struct{}

func (NoopGradeSummaryCache) Get(ctx context.Context, courseID, studentID uint, dest interface{}) error {
	return ErrCacheMiss
}

func (NoopGradeSummaryCache) Set(ctx context.Context, courseID, studentID uint, value interface{}, ttl time.Duration) error {
	return nil
}

func (NoopGradeSummaryCache) Invalidate(ctx context.Context, courseID, studentID uint) error {
	return nil
}

func (NoopGradeSummaryCache) InvalidateCourse(ctx context.Context, courseID uint) error {
	return nil
}
