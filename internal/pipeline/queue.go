package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Stage string

const (
	StageBooking      Stage = "booking"
	StagePayment      Stage = "payment"
	StageNotification Stage = "notification"
	StageAnalytics    Stage = "analytics"
)

// Stages lists every pipeline stage in hand-off order.
var Stages = []Stage{StageBooking, StagePayment, StageNotification, StageAnalytics}

// Decision is a stage handler's verdict on a delivered message.
type Decision int

const (
	Ack Decision = iota
	Retry
	DeadLetter
)

func (d Decision) String() string {
	switch d {
	case Ack:
		return "ack"
	case Retry:
		return "retry"
	case DeadLetter:
		return "dead_letter"
	}
	return "unknown"
}

// Message is the queue envelope. DedupKey identifies the logical operation
// across redeliveries; handlers stay idempotent by gating on booking state,
// the key is advisory. GroupKey (the event id for the booking and payment
// stages) selects the ordered delivery lane.
type Message struct {
	Stage     Stage             `json:"stage"`
	BookingID uuid.UUID         `json:"booking_id"`
	DedupKey  string            `json:"dedup_key"`
	GroupKey  string            `json:"group_key"`
	Attempt   int               `json:"attempt"`
	Payload   map[string]string `json:"payload,omitempty"`
}

func NewMessage(stage Stage, bookingID uuid.UUID, groupKey string, payload map[string]string) Message {
	return Message{
		Stage:     stage,
		BookingID: bookingID,
		DedupKey:  fmt.Sprintf("%s:%s", bookingID.String(), stage),
		GroupKey:  groupKey,
		Payload:   payload,
	}
}

// Handler processes one delivered message. It must be safe to call with
// the same dedup key any number of times.
type Handler func(ctx context.Context, msg Message) Decision

// Queue is the transport behind the order pipeline. Delivery is
// at-least-once; messages sharing a GroupKey on the same stage are
// delivered in publish order.
type Queue interface {
	// Publish appends the message to its stage.
	Publish(ctx context.Context, msg Message) error

	// PublishDead moves the message to the stage's dead-letter
	// destination.
	PublishDead(ctx context.Context, msg Message) error

	// Consume delivers messages for one stage to the handler until the
	// context is cancelled.
	Consume(ctx context.Context, stage Stage, handler Handler) error

	Close() error
}
