package response

type TierAvailabilityResponse struct {
	Tier      string  `json:"tier"`
	Price     float64 `json:"price"`
	Total     int     `json:"total"`
	Available int     `json:"available"`
}

type AvailabilityResponse struct {
	EventID string                     `json:"event_id"`
	Tiers   []TierAvailabilityResponse `json:"tiers"`
}
