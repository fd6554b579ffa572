package usecase

import (
	"context"

	"ticket-booking/internal/cache"
	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityService serves per-event tier availability reads through the
// cache-aside layer. The numbers are advisory: a reservation is only ever
// granted by the store's conditional write, never by this snapshot.
type AvailabilityService interface {
	GetAvailability(ctx context.Context, eventID uuid.UUID) (*response.AvailabilityResponse, error)
}

type availabilityService struct {
	repo  *repository.Repository
	cache cache.AvailabilityCache
	log   *zap.Logger
}

func NewAvailabilityService(repo *repository.Repository, cache cache.AvailabilityCache, log *zap.Logger) AvailabilityService {
	return &availabilityService{
		repo:  repo,
		cache: cache,
		log:   log.With(zap.String("service", "availability")),
	}
}

func (s *availabilityService) GetAvailability(ctx context.Context, eventID uuid.UUID) (*response.AvailabilityResponse, error) {
	if tiers, ok := s.cache.Get(ctx, eventID); ok {
		return buildAvailabilityResponse(eventID, tiers), nil
	}

	event, err := s.repo.Event.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, entity.ErrEventNotFound
	}

	tierRows, err := s.repo.Event.ListTiers(ctx, eventID)
	if err != nil {
		return nil, err
	}

	tiers := make([]cache.TierAvailability, len(tierRows))
	for i, tier := range tierRows {
		tiers[i] = cache.TierAvailability{
			Tier:      tier.Name,
			Price:     tier.Price,
			Total:     tier.Total,
			Available: tier.Available(),
		}
	}

	s.cache.Set(ctx, eventID, tiers)

	return buildAvailabilityResponse(eventID, tiers), nil
}

func buildAvailabilityResponse(eventID uuid.UUID, tiers []cache.TierAvailability) *response.AvailabilityResponse {
	tierResponses := make([]response.TierAvailabilityResponse, len(tiers))
	for i, tier := range tiers {
		tierResponses[i] = response.TierAvailabilityResponse{
			Tier:      tier.Tier,
			Price:     tier.Price,
			Total:     tier.Total,
			Available: tier.Available,
		}
	}

	return &response.AvailabilityResponse{
		EventID: eventID.String(),
		Tiers:   tierResponses,
	}
}
