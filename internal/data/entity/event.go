package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventStatusDraft  EventStatus = "draft"
	EventStatusOpen   EventStatus = "open"
	EventStatusClosed EventStatus = "closed"
)

// Event is owned by the event-management collaborator. This service only
// reads it to validate reservations; tiers carry the mutable counters.
type Event struct {
	Base
	Name     string      `db:"name"`
	Status   EventStatus `db:"status"`
	StartsAt time.Time   `db:"starts_at"`
}

// Tier is a priced category of tickets with fixed total capacity.
// Invariant: Reserved + Confirmed <= Total, at all times, under all
// concurrent access. Version is the optimistic-concurrency token; every
// counter mutation must carry the version it read.
type Tier struct {
	EventID   uuid.UUID `db:"event_id"`
	Name      string    `db:"name"`
	Price     float64   `db:"price"`
	Total     int       `db:"total"`
	Reserved  int       `db:"reserved"`
	Confirmed int       `db:"confirmed"`
	Version   int64     `db:"version"`
}

// Available is the capacity a new hold could still claim.
func (t *Tier) Available() int {
	return t.Total - t.Reserved - t.Confirmed
}
