package response

import (
	"time"

	"ticket-booking/internal/data/entity"
)

type BookingResponse struct {
	ID            string               `json:"id"`
	OrderID       string               `json:"order_id"`
	UserID        string               `json:"user_id"`
	EventID       string               `json:"event_id"`
	Tier          string               `json:"tier"`
	Quantity      int                  `json:"quantity"`
	TotalPrice    float64              `json:"total_price"`
	Status        entity.BookingStatus `json:"status"`
	HoldExpiresAt time.Time            `json:"hold_expires_at"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID.String(),
		OrderID:       b.OrderID,
		UserID:        b.UserID.String(),
		EventID:       b.EventID.String(),
		Tier:          b.TierName,
		Quantity:      b.Quantity,
		TotalPrice:    b.TotalPrice,
		Status:        b.Status,
		HoldExpiresAt: b.HoldExpiresAt,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}
