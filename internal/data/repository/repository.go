package repository

import (
	"ticket-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Event     EventRepository
	Inventory InventoryRepository
	Booking   BookingRepository
	Session   SessionRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Event:     NewEventRepository(db, log),
		Inventory: NewInventoryRepository(db, log),
		Booking:   NewBookingRepository(db, log),
		Session:   NewSessionRepository(db, log),
	}
}
