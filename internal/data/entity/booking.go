package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusCreated        BookingStatus = "created"
	BookingStatusReserved       BookingStatus = "reserved"
	BookingStatusPaymentPending BookingStatus = "payment_pending"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusCancelled      BookingStatus = "cancelled"
	BookingStatusExpired        BookingStatus = "expired"
	BookingStatusFailed         BookingStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusCancelled, BookingStatusExpired, BookingStatusFailed:
		return true
	}
	return false
}

type Booking struct {
	Base
	OrderID       string        `db:"order_id"`
	UserID        uuid.UUID     `db:"user_id"`
	EventID       uuid.UUID     `db:"event_id"`
	TierName      string        `db:"tier_name"`
	Quantity      int           `db:"quantity"`
	TotalPrice    float64       `db:"total_price"`
	Status        BookingStatus `db:"status"`
	HoldExpiresAt time.Time     `db:"hold_expires_at"`
}

// HoldLapsed reports whether the hold TTL has passed at the given instant.
// Only meaningful while the booking is still in reserved.
func (b *Booking) HoldLapsed(now time.Time) bool {
	return !b.HoldExpiresAt.After(now)
}
