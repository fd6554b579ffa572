package wire

import (
	"ticket-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireEvent(r chi.Router, eventHandler *adaptor.EventHandler) {
	// GET /api/events/{id}/availability - Tier availability snapshot (public)
	r.Get("/api/events/{id}/availability", eventHandler.GetAvailability)
}
