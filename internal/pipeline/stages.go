package pipeline

import (
	"context"
	"errors"

	"ticket-booking/internal/clock"
	"ticket-booking/internal/data/entity"
	"ticket-booking/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification kinds carried in stage payloads.
const (
	KindReservationCreated = "reservation_created"
	KindBookingConfirmed   = "booking_confirmed"
	KindPaymentDeclined    = "payment_declined"
	KindBookingFailed      = "booking_failed"
)

// Reservations is the slice of the reservation service the stage handlers
// need. The handlers never touch repositories directly; every state change
// funnels through the service so its gates apply uniformly.
type Reservations interface {
	Compensator

	BookingByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)

	// ConfirmPayment finishes the payment leg: approved moves the hold to
	// confirmed, declined releases it and cancels the booking. Both
	// directions are no-ops when the booking already left payment_pending.
	ConfirmPayment(ctx context.Context, bookingID uuid.UUID, approved bool) (bool, error)
}

// StageHandlers builds the handler for each pipeline stage. One instance
// serves all stages; state lives in the booking rows, not here.
type StageHandlers struct {
	svc      Reservations
	queue    Queue
	gateway  PaymentGateway
	notifier Notifier
	clock    clock.Clock
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewStageHandlers(
	svc Reservations,
	queue Queue,
	gateway PaymentGateway,
	notifier Notifier,
	clk clock.Clock,
	m *metrics.Metrics,
	log *zap.Logger,
) *StageHandlers {
	return &StageHandlers{
		svc:      svc,
		queue:    queue,
		gateway:  gateway,
		notifier: notifier,
		clock:    clk,
		metrics:  m,
		log:      log.With(zap.String("component", "pipeline-stages")),
	}
}

// RegisterAll wires every stage handler into the worker.
func (h *StageHandlers) RegisterAll(w *Worker) {
	w.Register(StageBooking, h.Booking)
	w.Register(StagePayment, h.Payment)
	w.Register(StageNotification, h.Notification)
	w.Register(StageAnalytics, h.Analytics)
}

// Booking validates a fresh reservation and emits the analytics event for
// it. The hold itself was taken synchronously; a replayed or stale message
// finds the booking past reserved and acks without effect.
func (h *StageHandlers) Booking(ctx context.Context, msg Message) Decision {
	booking, err := h.svc.BookingByID(ctx, msg.BookingID)
	if err != nil {
		if errors.Is(err, entity.ErrBookingNotFound) {
			return Ack
		}
		h.log.Warn("Booking stage lookup failed",
			zap.String("booking_id", msg.BookingID.String()),
			zap.Error(err),
		)
		return Retry
	}

	if booking.Status != entity.BookingStatusReserved {
		return Ack
	}
	if booking.HoldLapsed(h.clock.Now()) {
		// The reaper owns lapsed holds; nothing to do here.
		return Ack
	}

	h.emitAnalytics(ctx, booking, KindReservationCreated)
	return Ack
}

// Payment charges the booking through the gateway and settles the hold. The
// payment_pending gate was taken when the confirm request was accepted, so a
// redelivered message for a settled booking is a clean no-op.
func (h *StageHandlers) Payment(ctx context.Context, msg Message) Decision {
	booking, err := h.svc.BookingByID(ctx, msg.BookingID)
	if err != nil {
		if errors.Is(err, entity.ErrBookingNotFound) {
			return Ack
		}
		return Retry
	}

	if booking.Status != entity.BookingStatusPaymentPending {
		// Already settled by an earlier delivery, or failed by
		// compensation.
		return Ack
	}

	result, err := h.gateway.Charge(ctx, booking, msg.Payload["payment_token"])
	if err != nil {
		if errors.Is(err, entity.ErrDownstreamUnavailable) {
			h.log.Warn("Payment gateway unavailable, retrying",
				zap.String("booking_id", booking.ID.String()),
				zap.Int("attempt", msg.Attempt),
			)
		} else {
			h.log.Error("Charge attempt failed",
				zap.String("booking_id", booking.ID.String()),
				zap.Error(err),
			)
		}
		return Retry
	}

	settled, err := h.svc.ConfirmPayment(ctx, booking.ID, result.Approved)
	if err != nil {
		return Retry
	}
	if !settled {
		// Lost the gate to a concurrent settlement.
		return Ack
	}

	kind := KindBookingConfirmed
	if !result.Approved {
		kind = KindPaymentDeclined
	}
	h.emitNotification(ctx, booking, kind)
	h.emitAnalytics(ctx, booking, kind)
	return Ack
}

// Notification delivers the status change to the user. Delivery failures
// retry; the notifier is external and expected to flap.
func (h *StageHandlers) Notification(ctx context.Context, msg Message) Decision {
	userID, err := uuid.Parse(msg.Payload["user_id"])
	if err != nil {
		h.log.Error("Notification message missing user id",
			zap.String("dedup_key", msg.DedupKey),
		)
		return DeadLetter
	}

	if err := h.notifier.Notify(ctx, userID, msg.BookingID, msg.Payload["kind"]); err != nil {
		h.log.Warn("Notification delivery failed",
			zap.String("booking_id", msg.BookingID.String()),
			zap.Error(err),
		)
		return Retry
	}
	return Ack
}

// Analytics records the business event. Counting is best-effort and never
// retried; a lost increment is acceptable, a stuck queue is not.
func (h *StageHandlers) Analytics(ctx context.Context, msg Message) Decision {
	kind := msg.Payload["kind"]
	if kind == "" {
		kind = "unknown"
	}
	h.metrics.AnalyticsEvents.WithLabelValues(kind).Inc()
	return Ack
}

func (h *StageHandlers) emitNotification(ctx context.Context, booking *entity.Booking, kind string) {
	msg := NewMessage(StageNotification, booking.ID, booking.UserID.String(), map[string]string{
		"user_id": booking.UserID.String(),
		"kind":    kind,
	})
	if err := h.queue.Publish(ctx, msg); err != nil {
		h.log.Error("Failed to enqueue notification",
			zap.String("booking_id", booking.ID.String()),
			zap.Error(err),
		)
	}
}

func (h *StageHandlers) emitAnalytics(ctx context.Context, booking *entity.Booking, kind string) {
	msg := NewMessage(StageAnalytics, booking.ID, booking.EventID.String(), map[string]string{
		"kind": kind,
	})
	if err := h.queue.Publish(ctx, msg); err != nil {
		h.log.Error("Failed to enqueue analytics event",
			zap.String("booking_id", booking.ID.String()),
			zap.Error(err),
		)
	}
}
