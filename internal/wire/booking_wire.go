package wire

import (
	"ticket-booking/internal/adaptor"
	"ticket-booking/internal/data/repository"
	"ticket-booking/pkg/middleware"
	"ticket-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// All booking routes require a valid session.
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))

		// POST /api/bookings - Take a hold on tier capacity
		r.Post("/api/bookings", bookingHandler.Reserve)

		// GET /api/bookings/{id} - Booking status
		r.Get("/api/bookings/{id}", bookingHandler.GetBooking)

		// POST /api/bookings/{id}/confirm - Accept confirm for async payment
		r.Post("/api/bookings/{id}/confirm", bookingHandler.Confirm)

		// POST /api/bookings/{id}/cancel - Release the hold
		r.Post("/api/bookings/{id}/cancel", bookingHandler.Cancel)

		// GET /api/user/bookings - Booking history
		r.Get("/api/user/bookings", bookingHandler.GetUserBookings)
	})
}
