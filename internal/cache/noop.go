package cache

import (
	"context"

	"github.com/google/uuid"
)

// noopCache always misses. Used when no cache backend is configured; the
// cache is advisory, so correctness is unaffected.
type noopCache struct{}

func NewNoop() AvailabilityCache {
	return noopCache{}
}

func (noopCache) Get(_ context.Context, _ uuid.UUID) ([]TierAvailability, bool) { return nil, false }
func (noopCache) Set(_ context.Context, _ uuid.UUID, _ []TierAvailability)      {}
func (noopCache) Invalidate(_ context.Context, _ uuid.UUID)                     {}
