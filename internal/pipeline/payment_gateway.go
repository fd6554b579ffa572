package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ticket-booking/internal/data/entity"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ChargeResult is the generic success/failure callback surface of the
// external payment collaborator.
type ChargeResult struct {
	Approved  bool
	Reference string
}

type PaymentGateway interface {
	// Charge attempts to collect the booking total. A declined charge is
	// a result, not an error; errors mean the gateway could not answer.
	Charge(ctx context.Context, booking *entity.Booking, token string) (ChargeResult, error)
}

// SimulatedGateway approves everything except tokens carrying a decline
// marker, which keeps end-to-end flows and failure paths exercisable
// without a real processor.
type SimulatedGateway struct{}

func (SimulatedGateway) Charge(_ context.Context, booking *entity.Booking, token string) (ChargeResult, error) {
	if strings.HasPrefix(token, "declined") {
		return ChargeResult{Approved: false}, nil
	}
	return ChargeResult{
		Approved:  true,
		Reference: fmt.Sprintf("sim-%s", booking.OrderID),
	}, nil
}

// breakerGateway shields the pipeline from a flapping gateway. An open
// breaker surfaces ErrDownstreamUnavailable so the payment stage retries
// at the delivery layer instead of hammering the processor.
type breakerGateway struct {
	next PaymentGateway
	cb   *gobreaker.CircuitBreaker
	log  *zap.Logger
}

func NewBreakerGateway(next PaymentGateway, log *zap.Logger) PaymentGateway {
	settings := gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &breakerGateway{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
		log:  log.With(zap.String("component", "payment-gateway")),
	}
}

func (g *breakerGateway) Charge(ctx context.Context, booking *entity.Booking, token string) (ChargeResult, error) {
	result, err := g.cb.Execute(func() (interface{}, error) {
		return g.next.Charge(ctx, booking, token)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			g.log.Warn("Payment gateway breaker open")
			return ChargeResult{}, entity.ErrDownstreamUnavailable
		}
		return ChargeResult{}, fmt.Errorf("charge booking %s: %w", booking.ID.String(), err)
	}
	return result.(ChargeResult), nil
}
