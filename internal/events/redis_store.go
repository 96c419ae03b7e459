package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultProcessedTTL = 24 * time.Hour

// RedisProcessedStore claims wamids with SETNX under processed:{provider}:{id}
// and forgets them after ttl, well past Meta's retry window.
type RedisProcessedStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisProcessedStore(client *redis.Client, ttl time.Duration) *RedisProcessedStore {
	if client == nil {
		panic("events: redis client required")
	}
	if ttl <= 0 {
		ttl = defaultProcessedTTL
	}
	return &RedisProcessedStore{client: client, ttl: ttl, prefix: "processed"}
}

func (s *RedisProcessedStore) key(provider, eventID string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, provider, eventID)
}

func (s *RedisProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(provider, eventID), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ok, nil
}
