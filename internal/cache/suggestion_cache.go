package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// SuggestionCache is a read-through TTL cache for address-autocomplete
// lookups, keyed by the search text and the selected refinement. It only
// exists when redis is configured; a nil *SuggestionCache is a no-op for
// callers that check.
type SuggestionCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewSuggestionCache(client *redisv9.Client, ttl time.Duration) *SuggestionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SuggestionCache{client: client, ttl: ttl}
}

func (c *SuggestionCache) Get(ctx context.Context, search, selected string) (json.RawMessage, bool, error) {
	raw, err := c.client.Get(ctx, c.key(search, selected)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get suggestions failed: %w", err)
	}
	return json.RawMessage(raw), true, nil
}

func (c *SuggestionCache) Set(ctx context.Context, search, selected string, suggestions json.RawMessage) error {
	if err := c.client.Set(ctx, c.key(search, selected), []byte(suggestions), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set suggestions failed: %w", err)
	}
	return nil
}

func (c *SuggestionCache) key(search, selected string) string {
	return fmt.Sprintf("autocomplete:%s|%s", search, selected)
}
