package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"ticket-booking/internal/cache"
	"ticket-booking/internal/clock"
	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/dto/request"
	"ticket-booking/internal/dto/response"
	"ticket-booking/internal/pipeline"
	"ticket-booking/pkg/metrics"
	"ticket-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationService owns the booking lifecycle: taking holds against tier
// capacity, accepting confirms into the async payment leg, cancelling, and
// the settlement/compensation hooks the pipeline calls back into. It embeds
// pipeline.Reservations so the stage handlers and the dead-letter policy
// drive state changes through the same gates the HTTP surface uses.
type ReservationService interface {
	pipeline.Reservations

	Reserve(ctx context.Context, userID uuid.UUID, req *request.ReserveRequest) (*response.BookingResponse, error)

	// ConfirmBooking accepts the confirm for async processing: it moves the
	// hold to payment_pending and enqueues the payment stage. The actual
	// charge happens off-request.
	ConfirmBooking(ctx context.Context, userID, bookingID uuid.UUID, req *request.ConfirmBookingRequest) (*response.BookingResponse, error)

	CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, userID, bookingID uuid.UUID) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
}

type reservationService struct {
	repo    *repository.Repository
	cache   cache.AvailabilityCache
	queue   pipeline.Queue
	clock   clock.Clock
	config  *utils.Config
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewReservationService(
	repo *repository.Repository,
	cache cache.AvailabilityCache,
	queue pipeline.Queue,
	clk clock.Clock,
	config *utils.Config,
	m *metrics.Metrics,
	log *zap.Logger,
) ReservationService {
	return &reservationService{
		repo:    repo,
		cache:   cache,
		queue:   queue,
		clock:   clk,
		config:  config,
		metrics: m,
		log:     log.With(zap.String("service", "reservation")),
	}
}

func (s *reservationService) Reserve(ctx context.Context, userID uuid.UUID, req *request.ReserveRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Reserve validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", entity.ErrValidation, utils.FormatValidationErrors(errs))
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid event id %s", entity.ErrValidation, req.EventID)
	}

	event, err := s.repo.Event.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, entity.ErrEventNotFound
	}
	if event.Status != entity.EventStatusOpen {
		return nil, entity.ErrEventNotOpen
	}

	active, err := s.repo.Booking.CountActiveTickets(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active+req.Quantity > s.config.Booking.MaxTicketsPerUser {
		return nil, fmt.Errorf("%w: %d active, %d requested, limit %d",
			entity.ErrUserBookingLimit, active, req.Quantity, s.config.Booking.MaxTicketsPerUser)
	}

	booking, err := s.holdWithRetry(ctx, userID, eventID, req.Tier, req.Quantity)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, eventID)
	s.metrics.ReservationsTotal.WithLabelValues("reserved").Inc()

	msg := pipeline.NewMessage(pipeline.StageBooking, booking.ID, eventID.String(), map[string]string{
		"user_id": userID.String(),
	})
	if err := s.queue.Publish(ctx, msg); err != nil {
		// The hold is durable either way; the booking stage only feeds
		// analytics.
		s.log.Error("Failed to enqueue booking stage",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
	}

	s.log.Info("Hold taken",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.OrderID),
		zap.String("user_id", userID.String()),
		zap.String("event_id", eventID.String()),
		zap.String("tier", booking.TierName),
		zap.Int("quantity", booking.Quantity),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

// holdWithRetry runs the read-then-conditional-write loop. Conflicts mean a
// concurrent writer moved the tier version; each attempt re-reads and
// retries after a jittered backoff until the budget is spent.
func (s *reservationService) holdWithRetry(ctx context.Context, userID, eventID uuid.UUID, tierName string, quantity int) (*entity.Booking, error) {
	attempts := s.config.Booking.HoldRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		tier, err := s.repo.Event.FindTier(ctx, eventID, tierName)
		if err != nil {
			return nil, err
		}
		if tier == nil {
			return nil, entity.ErrTierNotFound
		}
		if tier.Available() < quantity {
			s.metrics.ReservationsTotal.WithLabelValues("exhausted").Inc()
			return nil, entity.ErrInventoryExhausted
		}

		now := s.clock.Now()
		booking := &entity.Booking{
			Base: entity.Base{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			OrderID:       utils.GenerateOrderID(),
			UserID:        userID,
			EventID:       eventID,
			TierName:      tierName,
			Quantity:      quantity,
			TotalPrice:    tier.Price * float64(quantity),
			Status:        entity.BookingStatusReserved,
			HoldExpiresAt: now.Add(s.config.Booking.HoldTTL),
		}

		err = s.repo.Inventory.TryHold(ctx, booking, tier.Version)
		if err == nil {
			return booking, nil
		}
		if err == entity.ErrInventoryExhausted {
			s.metrics.ReservationsTotal.WithLabelValues("exhausted").Inc()
			return nil, err
		}
		if err != entity.ErrConcurrencyConflict {
			return nil, err
		}

		s.log.Debug("Hold lost tier version race",
			zap.String("event_id", eventID.String()),
			zap.String("tier", tierName),
			zap.Int("attempt", attempt+1),
		)

		if attempt+1 < attempts {
			if err := s.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}

	s.metrics.ReservationsTotal.WithLabelValues("conflict").Inc()
	return nil, entity.ErrTemporarilyUnavailable
}

// backoff sleeps for an exponentially growing, jittered interval or until
// the context is cancelled.
func (s *reservationService) backoff(ctx context.Context, attempt int) error {
	base := s.config.Booking.HoldRetryBackoff
	if base <= 0 {
		base = 25 * time.Millisecond
	}
	wait := base << uint(attempt)
	wait += time.Duration(rand.Int63n(int64(wait)/2 + 1))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func (s *reservationService) ConfirmBooking(ctx context.Context, userID, bookingID uuid.UUID, req *request.ConfirmBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Confirm validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", entity.ErrValidation, utils.FormatValidationErrors(errs))
	}

	booking, err := s.ownedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	switch booking.Status {
	case entity.BookingStatusPaymentPending:
		// Replay of an accepted confirm. Re-enqueue so a lost message does
		// not strand the booking; the payment handler is gated on state.
		s.enqueuePayment(ctx, booking, req.PaymentToken)
		resp := response.BookingToResponse(booking)
		return &resp, nil

	case entity.BookingStatusConfirmed:
		resp := response.BookingToResponse(booking)
		return &resp, nil

	case entity.BookingStatusExpired:
		return nil, entity.ErrExpiredHold

	case entity.BookingStatusCancelled, entity.BookingStatusFailed:
		return nil, fmt.Errorf("%w: booking is %s", entity.ErrInvalidState, booking.Status)
	}

	if booking.HoldLapsed(s.clock.Now()) {
		// The reaper owns the expiry transition; report without mutating.
		return nil, entity.ErrExpiredHold
	}

	ok, err := s.repo.Booking.TransitionStatus(ctx, bookingID,
		entity.BookingStatusReserved, entity.BookingStatusPaymentPending)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the gate, likely to the reaper. Re-read and report what won.
		current, err := s.repo.Booking.FindByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if current != nil && current.Status == entity.BookingStatusExpired {
			return nil, entity.ErrExpiredHold
		}
		return nil, entity.ErrInvalidState
	}

	booking.Status = entity.BookingStatusPaymentPending
	if err := s.enqueuePayment(ctx, booking, req.PaymentToken); err != nil {
		// Give the hold back to reserved so the reaper TTL still applies;
		// the caller can retry the confirm.
		if _, revertErr := s.repo.Booking.TransitionStatus(ctx, bookingID,
			entity.BookingStatusPaymentPending, entity.BookingStatusReserved); revertErr != nil {
			s.log.Error("Failed to revert payment gate after enqueue failure",
				zap.Error(revertErr),
				zap.String("booking_id", bookingID.String()),
			)
		}
		return nil, entity.ErrDownstreamUnavailable
	}

	s.log.Info("Confirm accepted",
		zap.String("booking_id", bookingID.String()),
		zap.String("order_id", booking.OrderID),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *reservationService) enqueuePayment(ctx context.Context, booking *entity.Booking, token string) error {
	msg := pipeline.NewMessage(pipeline.StagePayment, booking.ID, booking.EventID.String(), map[string]string{
		"payment_token": token,
		"user_id":       booking.UserID.String(),
	})
	if err := s.queue.Publish(ctx, msg); err != nil {
		s.log.Error("Failed to enqueue payment stage",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return err
	}
	return nil
}

func (s *reservationService) CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) (*response.BookingResponse, error) {
	booking, err := s.ownedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Status == entity.BookingStatusCancelled {
		resp := response.BookingToResponse(booking)
		return &resp, nil
	}
	if booking.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: booking is %s", entity.ErrInvalidState, booking.Status)
	}

	ok, err := s.repo.Inventory.Release(ctx, bookingID,
		[]entity.BookingStatus{entity.BookingStatusReserved, entity.BookingStatusPaymentPending},
		entity.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.repo.Booking.FindByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if current != nil && current.Status == entity.BookingStatusCancelled {
			resp := response.BookingToResponse(current)
			return &resp, nil
		}
		return nil, entity.ErrInvalidState
	}

	s.cache.Invalidate(ctx, booking.EventID)

	msg := pipeline.NewMessage(pipeline.StageAnalytics, bookingID, booking.EventID.String(), map[string]string{
		"kind": "booking_cancelled",
	})
	if err := s.queue.Publish(ctx, msg); err != nil {
		s.log.Error("Failed to enqueue cancellation event",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
	}

	s.log.Info("Booking cancelled",
		zap.String("booking_id", bookingID.String()),
		zap.String("order_id", booking.OrderID),
	)

	booking.Status = entity.BookingStatusCancelled
	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *reservationService) GetBooking(ctx context.Context, userID, bookingID uuid.UUID) (*response.BookingResponse, error) {
	booking, err := s.ownedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *reservationService) GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	bookings, err := s.repo.Booking.FindByUserID(ctx, userID, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	bookingResponses := make([]response.BookingResponse, len(bookings))
	for i, booking := range bookings {
		bookingResponses[i] = response.BookingToResponse(booking)
	}

	return response.NewPaginatedResponse(bookingResponses, req.Page, req.PerPage, total), nil
}

func (s *reservationService) ownedBooking(ctx context.Context, userID, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, entity.ErrBookingNotFound
	}
	if booking.UserID != userID {
		return nil, entity.ErrBookingNotOwned
	}
	return booking, nil
}

// ==================== PIPELINE CALLBACKS ====================

func (s *reservationService) BookingByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, entity.ErrBookingNotFound
	}
	return booking, nil
}

// ConfirmPayment settles the payment leg. Approved moves held units to
// confirmed; declined releases them and cancels the booking. Both paths are
// gated on payment_pending, so redeliveries no-op.
func (s *reservationService) ConfirmPayment(ctx context.Context, bookingID uuid.UUID, approved bool) (bool, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if booking == nil {
		return false, entity.ErrBookingNotFound
	}

	var settled bool
	if approved {
		settled, err = s.repo.Inventory.Confirm(ctx, bookingID)
	} else {
		settled, err = s.repo.Inventory.Release(ctx, bookingID,
			[]entity.BookingStatus{entity.BookingStatusPaymentPending},
			entity.BookingStatusCancelled)
	}
	if err != nil {
		return false, err
	}
	if !settled {
		return false, nil
	}

	s.cache.Invalidate(ctx, booking.EventID)

	s.log.Info("Payment settled",
		zap.String("booking_id", bookingID.String()),
		zap.String("order_id", booking.OrderID),
		zap.Bool("approved", approved),
	)

	return true, nil
}

// Fail is the dead-letter compensation: it drives an in-flight booking to
// failed and returns its held units. A booking already terminal is left
// alone.
func (s *reservationService) Fail(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if booking == nil || booking.Status.IsTerminal() {
		return false, nil
	}

	released, err := s.repo.Inventory.Release(ctx, bookingID,
		[]entity.BookingStatus{entity.BookingStatusReserved, entity.BookingStatusPaymentPending},
		entity.BookingStatusFailed)
	if err != nil {
		return false, err
	}
	if !released {
		return false, nil
	}

	s.cache.Invalidate(ctx, booking.EventID)
	return true, nil
}
