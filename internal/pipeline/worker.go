package pipeline

import (
	"context"
	"sync"

	"ticket-booking/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compensator drives a booking to a terminal, inventory-consistent state
// before a message is dead-lettered. Implemented by the reservation
// service; a no-op when the booking is already terminal.
type Compensator interface {
	Fail(ctx context.Context, bookingID uuid.UUID) (bool, error)
}

// Worker drains every registered stage, applying the retry budget and
// dead-letter policy around the stage handlers.
type Worker struct {
	queue      Queue
	handlers   map[Stage]Handler
	comp       Compensator
	maxReceive int
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewWorker(queue Queue, comp Compensator, maxReceive int, m *metrics.Metrics, log *zap.Logger) *Worker {
	if maxReceive <= 0 {
		maxReceive = 3
	}
	return &Worker{
		queue:      queue,
		handlers:   make(map[Stage]Handler),
		comp:       comp,
		maxReceive: maxReceive,
		metrics:    m,
		log:        log.With(zap.String("component", "pipeline-worker")),
	}
}

func (w *Worker) Register(stage Stage, handler Handler) {
	w.handlers[stage] = handler
}

// Run consumes all registered stages until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for stage, handler := range w.handlers {
		wg.Add(1)
		go func(stage Stage, handler Handler) {
			defer wg.Done()
			err := w.queue.Consume(ctx, stage, w.wrap(stage, handler))
			if err != nil && ctx.Err() == nil {
				w.log.Error("Stage consumer stopped",
					zap.String("stage", string(stage)),
					zap.Error(err),
				)
			}
		}(stage, handler)
	}
	wg.Wait()
}

// wrap applies the delivery policy: Ack completes, Retry republishes with
// an incremented attempt until the receive budget is spent, and anything
// past the budget is compensated then dead-lettered.
func (w *Worker) wrap(stage Stage, handler Handler) Handler {
	return func(ctx context.Context, msg Message) Decision {
		decision := handler(ctx, msg)
		w.metrics.PipelineOutcomes.WithLabelValues(string(stage), decision.String()).Inc()

		switch decision {
		case Ack:
			return Ack

		case Retry:
			if msg.Attempt+1 < w.maxReceive {
				msg.Attempt++
				if err := w.queue.Publish(ctx, msg); err != nil {
					w.log.Error("Failed to republish for retry",
						zap.String("dedup_key", msg.DedupKey),
						zap.Error(err),
					)
					w.deadLetter(ctx, msg)
				}
				return Retry
			}
			w.log.Warn("Retry budget spent",
				zap.String("stage", string(stage)),
				zap.String("dedup_key", msg.DedupKey),
				zap.Int("attempts", msg.Attempt+1),
			)
			w.deadLetter(ctx, msg)
			return DeadLetter

		default:
			w.deadLetter(ctx, msg)
			return DeadLetter
		}
	}
}

func (w *Worker) deadLetter(ctx context.Context, msg Message) {
	// Compensate first so inventory is never leaked by a failed run. The
	// state gate makes this a no-op for bookings that already completed.
	failed, err := w.comp.Fail(ctx, msg.BookingID)
	if err != nil {
		w.log.Error("Compensation failed before dead-letter",
			zap.String("booking_id", msg.BookingID.String()),
			zap.String("dedup_key", msg.DedupKey),
			zap.Error(err),
		)
	} else if failed {
		w.log.Info("Booking failed by compensation",
			zap.String("booking_id", msg.BookingID.String()),
			zap.String("stage", string(msg.Stage)),
		)
	}

	if err := w.queue.PublishDead(ctx, msg); err != nil {
		w.log.Error("Failed to dead-letter message",
			zap.String("dedup_key", msg.DedupKey),
			zap.Error(err),
		)
	}
	w.metrics.DeadLetters.WithLabelValues(string(msg.Stage)).Inc()
}
