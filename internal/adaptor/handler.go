package adaptor

import (
	"errors"
	"net/http"

	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/usecase"
	"ticket-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Booking *BookingHandler
	Event   *EventHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking: NewBookingHandler(service.Reservation, log),
		Event:   NewEventHandler(service.Availability, log),
	}
}

// handleServiceError maps the service error taxonomy onto stable status
// codes. Unknown errors stay opaque 500s.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	errMsg := err.Error()

	switch {
	case errors.Is(err, entity.ErrValidation):
		log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseBadRequest(w, errMsg, nil)

	case errors.Is(err, entity.ErrEventNotFound),
		errors.Is(err, entity.ErrTierNotFound),
		errors.Is(err, entity.ErrBookingNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, errMsg)

	case errors.Is(err, entity.ErrBookingNotOwned):
		log.Warn(operation+" failed - forbidden", zap.Error(err))
		utils.ResponseForbidden(w, errMsg)

	case errors.Is(err, entity.ErrInventoryExhausted),
		errors.Is(err, entity.ErrEventNotOpen),
		errors.Is(err, entity.ErrUserBookingLimit),
		errors.Is(err, entity.ErrInvalidState),
		errors.Is(err, entity.ErrConcurrencyConflict):
		log.Warn(operation+" failed - conflict", zap.Error(err))
		utils.ResponseConflict(w, errMsg)

	case errors.Is(err, entity.ErrExpiredHold):
		log.Warn(operation+" failed - hold expired", zap.Error(err))
		utils.ResponseGone(w, errMsg)

	case errors.Is(err, entity.ErrTemporarilyUnavailable),
		errors.Is(err, entity.ErrDownstreamUnavailable):
		log.Warn(operation+" temporarily unavailable", zap.Error(err))
		utils.ResponseServiceUnavailable(w, errMsg)

	default:
		log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
