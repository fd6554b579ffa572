package reaper

import (
	"context"
	"time"

	"ticket-booking/internal/cache"
	"ticket-booking/internal/clock"
	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"
	"ticket-booking/pkg/metrics"

	"go.uber.org/zap"
)

// Reaper sweeps reserved bookings whose hold TTL lapsed and returns their
// units to available. The release is gated on the booking still being
// reserved, so a confirm that lands between the scan and the sweep wins and
// the reaper no-ops.
type Reaper struct {
	repo      *repository.Repository
	cache     cache.AvailabilityCache
	clock     clock.Clock
	interval  time.Duration
	batchSize int
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func New(
	repo *repository.Repository,
	cache cache.AvailabilityCache,
	clk clock.Clock,
	interval time.Duration,
	batchSize int,
	m *metrics.Metrics,
	log *zap.Logger,
) *Reaper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reaper{
		repo:      repo,
		cache:     cache,
		clock:     clk,
		interval:  interval,
		batchSize: batchSize,
		metrics:   m,
		log:       log.With(zap.String("component", "reaper")),
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("Reaper started",
		zap.Duration("interval", r.interval),
		zap.Int("batch_size", r.batchSize),
	)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Reaper stopped")
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.log.Error("Sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep expires one batch of lapsed holds and returns how many it expired.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	r.metrics.ReaperSweeps.Inc()

	lapsed, err := r.repo.Booking.FindExpiredReserved(ctx, r.clock.Now(), r.batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, booking := range lapsed {
		released, err := r.repo.Inventory.Release(ctx, booking.ID,
			[]entity.BookingStatus{entity.BookingStatusReserved},
			entity.BookingStatusExpired)
		if err != nil {
			r.log.Error("Failed to expire hold",
				zap.Error(err),
				zap.String("booking_id", booking.ID.String()),
			)
			continue
		}
		if !released {
			// A confirm or cancel won the race since the scan.
			continue
		}

		expired++
		r.metrics.ReaperExpired.Inc()
		r.cache.Invalidate(ctx, booking.EventID)

		r.log.Info("Hold expired",
			zap.String("booking_id", booking.ID.String()),
			zap.String("order_id", booking.OrderID),
			zap.String("event_id", booking.EventID.String()),
			zap.String("tier", booking.TierName),
			zap.Int("quantity", booking.Quantity),
		)
	}

	return expired, nil
}
