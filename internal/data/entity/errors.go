package entity

import "errors"

// Error taxonomy surfaced by repositories and services. The HTTP adaptor
// maps these to stable status codes; the pipeline maps them to
// ack/retry/dead-letter decisions.
var (
	// ErrValidation covers bad input. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrInventoryExhausted means the tier has no remaining capacity.
	// Never retried; surfaced to the caller immediately.
	ErrInventoryExhausted = errors.New("inventory exhausted")

	// ErrConcurrencyConflict means a concurrent writer invalidated the
	// precondition of a conditional write. Retried locally with backoff.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrTemporarilyUnavailable is surfaced after the conflict retry
	// budget is spent.
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable")

	// ErrExpiredHold means the operation targeted a hold past its TTL.
	// Triggers no mutation; the reaper owns the expiry transition.
	ErrExpiredHold = errors.New("hold expired")

	// ErrPaymentFailure is a pipeline-level decline from the payment
	// gateway. Triggers a compensating release.
	ErrPaymentFailure = errors.New("payment failed")

	// ErrDownstreamUnavailable covers queue/store/gateway connectivity.
	// Retried at the message-delivery layer, then dead-lettered.
	ErrDownstreamUnavailable = errors.New("downstream unavailable")

	ErrEventNotFound    = errors.New("event not found")
	ErrEventNotOpen     = errors.New("event not open for booking")
	ErrTierNotFound     = errors.New("tier not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrBookingNotOwned  = errors.New("booking does not belong to user")
	ErrInvalidState     = errors.New("invalid booking state for operation")
	ErrUserBookingLimit = errors.New("active ticket limit reached for user")
)
