package request

type ReserveRequest struct {
	EventID  string `json:"event_id" validate:"required,uuid4"`
	Tier     string `json:"tier" validate:"required,min=1,max=64"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=10"`
}

type ConfirmBookingRequest struct {
	PaymentToken string `json:"payment_token" validate:"required,min=8"`
}
