package usecase

import (
	"ticket-booking/internal/cache"
	"ticket-booking/internal/clock"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/pipeline"
	"ticket-booking/pkg/metrics"
	"ticket-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Reservation  ReservationService
	Availability AvailabilityService
}

func NewService(
	repo *repository.Repository,
	cache cache.AvailabilityCache,
	queue pipeline.Queue,
	clk clock.Clock,
	config *utils.Config,
	m *metrics.Metrics,
	log *zap.Logger,
) *Service {
	return &Service{
		Reservation:  NewReservationService(repo, cache, queue, clk, config, m, log),
		Availability: NewAvailabilityService(repo, cache, log),
	}
}
