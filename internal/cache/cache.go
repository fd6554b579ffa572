package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TierAvailability is the advisory snapshot served to availability reads.
// Never consulted for hold decisions; the store's conditional write is the
// source of truth.
type TierAvailability struct {
	Tier      string  `json:"tier"`
	Price     float64 `json:"price"`
	Total     int     `json:"total"`
	Available int     `json:"available"`
}

// AvailabilityCache is a cache-aside store of per-event tier availability.
// Entries are invalidated (deleted, not just left to expire) on every
// successful hold, confirm, and release.
type AvailabilityCache interface {
	Get(ctx context.Context, eventID uuid.UUID) ([]TierAvailability, bool)
	Set(ctx context.Context, eventID uuid.UUID, tiers []TierAvailability)
	Invalidate(ctx context.Context, eventID uuid.UUID)
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log *zap.Logger) AvailabilityCache {
	return &redisCache{
		client: client,
		ttl:    ttl,
		log:    log.With(zap.String("cache", "availability")),
	}
}

func availabilityKey(eventID uuid.UUID) string {
	return fmt.Sprintf("availability:%s", eventID.String())
}

// Get returns false on miss and on any cache error; callers fall back to
// the store.
func (c *redisCache) Get(ctx context.Context, eventID uuid.UUID) ([]TierAvailability, bool) {
	val, err := c.client.Get(ctx, availabilityKey(eventID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("Cache read failed",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
		)
		return nil, false
	}

	var tiers []TierAvailability
	if err := json.Unmarshal([]byte(val), &tiers); err != nil {
		c.log.Warn("Cache entry corrupt, dropping",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
		)
		c.client.Del(ctx, availabilityKey(eventID))
		return nil, false
	}

	return tiers, true
}

func (c *redisCache) Set(ctx context.Context, eventID uuid.UUID, tiers []TierAvailability) {
	data, err := json.Marshal(tiers)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, availabilityKey(eventID), data, c.ttl).Err(); err != nil {
		c.log.Warn("Cache write failed",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
		)
	}
}

func (c *redisCache) Invalidate(ctx context.Context, eventID uuid.UUID) {
	if err := c.client.Del(ctx, availabilityKey(eventID)).Err(); err != nil {
		c.log.Warn("Cache invalidation failed",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
		)
	}
}
