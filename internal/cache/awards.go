package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fortuna/laurel/internal/awards"
)

const (
	keyPrefix     = "laurel:awards"
	generationKey = keyPrefix + ":generation"
)

// ListingKey identifies one cached award listing
type ListingKey struct {
	Season   string
	Type     string
	Week     string
	PlayerID int
}

func (k ListingKey) String() string {
	return fmt.Sprintf("season=%s:type=%s:week=%s:player=%d", k.Season, k.Type, k.Week, k.PlayerID)
}

// key folds the current generation into the Redis key, so bumping the
// generation orphans every listing cached before it.
func (rc *RedisCache) key(ctx context.Context, k ListingKey) (string, error) {
	gen, err := rc.client.Get(ctx, generationKey).Int64()
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("reading cache generation: %w", err)
	}
	return fmt.Sprintf("%s:v%d:%s", keyPrefix, gen, k), nil
}

// GetListing decodes a cached listing into dest. It reports false on a miss.
func (rc *RedisCache) GetListing(ctx context.Context, k ListingKey, dest interface{}) (bool, error) {
	key, err := rc.key(ctx, k)
	if err != nil {
		return false, err
	}

	data, err := rc.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// SetListing stores a listing for the configured TTL
func (rc *RedisCache) SetListing(ctx context.Context, k ListingKey, value interface{}) error {
	key, err := rc.key(ctx, k)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return rc.client.Set(ctx, key, data, rc.ttl).Err()
}

// Invalidate drops every cached listing
func (rc *RedisCache) Invalidate(ctx context.Context) error {
	return rc.client.Incr(ctx, generationKey).Err()
}

// AwardsCalculated invalidates the listings after an award pass
func (rc *RedisCache) AwardsCalculated(ctx context.Context, _ awards.PassSummary) error {
	return rc.Invalidate(ctx)
}
