package usecase

import (
	"context"
	"sync"
	"testing"

	"ticket-booking/internal/cache"
	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memCache is a map-backed AvailabilityCache for exercising the
// cache-aside path.
type memCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID][]cache.TierAvailability
	hits    int
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[uuid.UUID][]cache.TierAvailability)}
}

func (c *memCache) Get(_ context.Context, eventID uuid.UUID) ([]cache.TierAvailability, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tiers, ok := c.entries[eventID]
	if ok {
		c.hits++
	}
	return tiers, ok
}

func (c *memCache) Set(_ context.Context, eventID uuid.UUID, tiers []cache.TierAvailability) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[eventID] = tiers
}

func (c *memCache) Invalidate(_ context.Context, eventID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, eventID)
}

func TestGetAvailability(t *testing.T) {
	eventID := uuid.New()
	store := newFakeStore()
	tier := standardTier(eventID, 100)
	tier.Reserved = 10
	tier.Confirmed = 5
	store.addEvent(openEvent(eventID), tier)

	repo := &repository.Repository{Event: store, Inventory: store, Booking: bookingRepoView{store}}
	mc := newMemCache()
	svc := NewAvailabilityService(repo, mc, zap.NewNop())

	resp, err := svc.GetAvailability(context.Background(), eventID)
	require.NoError(t, err)
	require.Len(t, resp.Tiers, 1)
	assert.Equal(t, "standard", resp.Tiers[0].Tier)
	assert.Equal(t, 100, resp.Tiers[0].Total)
	assert.Equal(t, 85, resp.Tiers[0].Available)
	assert.Equal(t, 1, mc.sets)
	assert.Equal(t, 0, mc.hits)

	// Second read is served from cache.
	resp, err = svc.GetAvailability(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, 85, resp.Tiers[0].Available)
	assert.Equal(t, 1, mc.sets)
	assert.Equal(t, 1, mc.hits)

	// Invalidation forces the next read back to the store.
	mc.Invalidate(context.Background(), eventID)
	_, err = svc.GetAvailability(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, 2, mc.sets)
}

func TestGetAvailabilityUnknownEvent(t *testing.T) {
	store := newFakeStore()
	repo := &repository.Repository{Event: store, Inventory: store, Booking: bookingRepoView{store}}
	svc := NewAvailabilityService(repo, newMemCache(), zap.NewNop())

	_, err := svc.GetAvailability(context.Background(), uuid.New())
	require.ErrorIs(t, err, entity.ErrEventNotFound)
}
